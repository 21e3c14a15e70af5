package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/moznion/go-optional"
)

var (
	TitleStyle = lipgloss.NewStyle().Bold(true)

	HelpStyle = lipgloss.NewStyle().Faint(true)

	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))

	upStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	downStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// missing is shown for values that are not known yet.
const missing = "-"

// FormatOptional formats a known value with the given precision.
func FormatOptional(v optional.Option[float64], decimals int) string {
	f, err := v.Take()
	if err != nil {
		return missing
	}

	return fmt.Sprintf("%.*f", decimals, f)
}

// FormatPrice picks a precision that keeps small prices readable.
func FormatPrice(v optional.Option[float64]) string {
	f, err := v.Take()
	if err != nil {
		return missing
	}

	switch {
	case f >= 1000:
		return fmt.Sprintf("%.2f", f)
	case f >= 1:
		return fmt.Sprintf("%.4f", f)
	default:
		return fmt.Sprintf("%.6f", f)
	}
}

// FormatChange formats a percentage change with a direction marker.
func FormatChange(v optional.Option[float64]) string {
	f, err := v.Take()
	if err != nil {
		return missing
	}

	s := fmt.Sprintf("%+.2f%%", f)

	switch {
	case f > 0:
		return upStyle.Render(s + " ▲")
	case f < 0:
		return downStyle.Render(s + " ▼")
	default:
		return s
	}
}

// FormatPriceWithColor marks a price against the previously shown one.
func FormatPriceWithColor(current, previous optional.Option[float64]) string {
	s := FormatPrice(current)

	cur, err := current.Take()
	if err != nil {
		return s
	}

	prev, err := previous.Take()
	if err != nil {
		return s
	}

	switch {
	case cur > prev:
		return s + " ▲"
	case cur < prev:
		return s + " ▼"
	default:
		return s
	}
}
