package main

import (
	"testing"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/portfolio"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		name     string
		value    optional.Option[float64]
		expected string
	}{
		{"unknown", optional.None[float64](), "-"},
		{"large", optional.Some(64250.5), "64250.50"},
		{"unit", optional.Some(1.08), "1.0800"},
		{"small", optional.Some(0.000123), "0.000123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatPrice(tt.value))
		})
	}
}

func TestFormatPriceWithColor(t *testing.T) {
	assert.Equal(t, "2.0000 ▲", FormatPriceWithColor(optional.Some(2.0), optional.Some(1.0)))
	assert.Equal(t, "1.0000 ▼", FormatPriceWithColor(optional.Some(1.0), optional.Some(2.0)))
	assert.Equal(t, "1.0000", FormatPriceWithColor(optional.Some(1.0), optional.Some(1.0)))
	assert.Equal(t, "1.0000", FormatPriceWithColor(optional.Some(1.0), optional.None[float64]()))
	assert.Equal(t, "-", FormatPriceWithColor(optional.None[float64](), optional.Some(1.0)))
}

func TestFormatChange(t *testing.T) {
	assert.Equal(t, "-", FormatChange(optional.None[float64]()))
	assert.Equal(t, "+0.00%", FormatChange(optional.Some(0.0)))
	assert.Contains(t, FormatChange(optional.Some(2.5)), "+2.50% ▲")
	assert.Contains(t, FormatChange(optional.Some(-1.25)), "-1.25% ▼")
}

func TestRenderPortfolio(t *testing.T) {
	assert.Contains(t, RenderPortfolio(portfolio.Summary{}, "EUR"), "No open positions.")

	out := RenderPortfolio(portfolio.Summary{
		Rows: []portfolio.Row{{
			Key:         "cg:bitcoin",
			Symbol:      "BTC",
			Name:        "Bitcoin",
			Quantity:    2,
			AverageCost: 90,
			Price:       optional.Some(100.0),
			Value:       optional.Some(200.0),
			PnL:         optional.Some(20.0),
		}},
		Total:    200,
		Excluded: 1,
	}, "EUR")

	assert.Contains(t, out, "BTC")
	assert.Contains(t, out, "Total 200.00 EUR")
	assert.Contains(t, out, "1 without price")
}

func TestRenderPreferences(t *testing.T) {
	out := RenderPreferences(types.Preferences{Theme: types.ThemeLight, Base: "USD", Player: ""}, "")

	assert.Contains(t, out, "light")
	assert.Contains(t, out, "USD")
	assert.Contains(t, out, "Player  -")
	assert.Contains(t, out, "Active  -")
}
