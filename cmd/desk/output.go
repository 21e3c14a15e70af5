package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rxtech-lab/trading-desk/internal/desk"
	"github.com/rxtech-lab/trading-desk/internal/marketdata"
	"github.com/rxtech-lab/trading-desk/internal/portfolio"
	"github.com/rxtech-lab/trading-desk/internal/types"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TitleStyle.Padding(0, 1)
			}

			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// RenderCandidates lists search results.
func RenderCandidates(candidates []marketdata.Candidate) string {
	t := newTable("Key", "Symbol", "Name", "Kind")

	for _, c := range candidates {
		t.Row(c.Key, c.Symbol, c.Name, string(c.Kind))
	}

	return t.String()
}

// RenderInstruments lists instruments with their latest price and position.
func RenderInstruments(views []desk.InstrumentView) string {
	t := newTable("", "Key", "Symbol", "Price", "Change", "MA", "RSI", "Qty", "Open")

	for _, v := range views {
		marker := ""
		if v.Active {
			marker = "*"
		}

		t.Row(
			marker,
			v.Instrument.Key,
			v.Instrument.Symbol,
			FormatPrice(v.Price),
			FormatChange(v.Change),
			FormatOptional(v.LastMA, 4),
			FormatOptional(v.LastRSI, 2),
			fmt.Sprintf("%g", v.Instrument.Position.Quantity),
			fmt.Sprintf("%d", len(v.Instrument.OpenOrders())),
		)
	}

	return t.String()
}

// RenderDetail shows one instrument with its indicators and order history.
func RenderDetail(v desk.InstrumentView) string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render(fmt.Sprintf("%s  %s", v.Instrument.Symbol, v.Instrument.Name)))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("Price %s  Change %s  MA %s  RSI %s\n",
		FormatPrice(v.Price), FormatChange(v.Change), FormatOptional(v.LastMA, 4), FormatOptional(v.LastRSI, 2)))

	if v.History != nil {
		s.WriteString(HelpStyle.Render(fmt.Sprintf("%d history samples", v.History.Len())))
		s.WriteString("\n")
	}

	s.WriteString(fmt.Sprintf("Position %g @ %.4f\n", v.Instrument.Position.Quantity, v.Instrument.Position.AverageCost))

	if len(v.Instrument.Orders) > 0 {
		s.WriteString(RenderOrders(v.Instrument.Orders))
	}

	return s.String()
}

// RenderOrders lists orders, newest first as stored.
func RenderOrders(orders []types.Order) string {
	t := newTable("Created", "Side", "Kind", "Qty", "Limit", "Exec", "Fee", "Status", "Player")

	for _, o := range orders {
		t.Row(
			o.CreatedAt.Format("2006-01-02 15:04:05"),
			string(o.Side),
			string(o.Kind),
			fmt.Sprintf("%g", o.Quantity),
			FormatPrice(o.LimitPrice),
			FormatPrice(o.ExecPrice),
			fmt.Sprintf("%g", o.FeeRate),
			string(o.Status),
			o.Player,
		)
	}

	return t.String()
}

// RenderPortfolio lists holdings and the total value in base.
func RenderPortfolio(summary portfolio.Summary, base string) string {
	if len(summary.Rows) == 0 {
		return HelpStyle.Render("No open positions.")
	}

	t := newTable("Symbol", "Qty", "Avg", "Price", "Value", "PnL")

	for _, r := range summary.Rows {
		t.Row(
			r.Symbol,
			fmt.Sprintf("%g", r.Quantity),
			fmt.Sprintf("%.4f", r.AverageCost),
			FormatPrice(r.Price),
			FormatOptional(r.Value, 2),
			FormatOptional(r.PnL, 2),
		)
	}

	total := fmt.Sprintf("Total %.2f %s", summary.Total, base)
	if summary.Excluded > 0 {
		total += HelpStyle.Render(fmt.Sprintf(" (%d without price)", summary.Excluded))
	}

	return t.String() + "\n" + TitleStyle.Render(total)
}

// RenderDigest summarises a refresh.
func RenderDigest(status desk.Status, digest desk.RefreshDigest) string {
	line := fmt.Sprintf("Refreshed %d instruments, %d orders filled, status %s", digest.Instruments, digest.Filled, status)
	if len(digest.Failed) == 0 {
		return HelpStyle.Render(line)
	}

	return ErrorStyle.Render(line + "; failed: " + strings.Join(digest.Failed, ", "))
}

// RenderPreferences shows the saved preferences.
func RenderPreferences(prefs types.Preferences, active string) string {
	player := prefs.Player
	if player == "" {
		player = missing
	}

	if active == "" {
		active = missing
	}

	return fmt.Sprintf("Theme   %s\nBase    %s\nPlayer  %s\nActive  %s", prefs.Theme, prefs.Base, player, active)
}
