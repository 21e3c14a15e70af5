// Package portfolio values the desk's holdings at the latest known prices.
package portfolio

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/shopspring/decimal"
)

// Holding is an instrument together with its latest known price.
type Holding struct {
	Instrument *types.Instrument
	Price      optional.Option[float64]
}

// Row is the valuation of one instrument. Value and PnL are None when the price is
// unknown or nothing is held.
type Row struct {
	Key         string                   `json:"key"`
	Symbol      string                   `json:"symbol"`
	Name        string                   `json:"name"`
	Quantity    float64                  `json:"qty"`
	AverageCost float64                  `json:"avg"`
	Price       optional.Option[float64] `json:"price"`
	Value       optional.Option[float64] `json:"value"`
	PnL         optional.Option[float64] `json:"pnl"`
}

// Summary is the mark-to-market view of the whole desk.
type Summary struct {
	Rows  []Row   `json:"rows"`
	Total float64 `json:"total"`
	// Excluded counts held instruments left out of Total because their price is unknown.
	Excluded int `json:"excluded"`
}

func knownPrice(price optional.Option[float64]) (float64, bool) {
	p, err := price.Take()
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return 0, false
	}

	return p, true
}

// TotalMarkToMarket sums qty × price over holdings with a positive quantity and a
// known price. Holdings without a price are skipped, never valued at zero; the number
// skipped is returned alongside the total.
func TotalMarkToMarket(holdings []Holding) (float64, int) {
	total := decimal.Zero
	excluded := 0

	for _, h := range holdings {
		qty := h.Instrument.Position.Quantity
		if qty <= 0 {
			continue
		}

		price, ok := knownPrice(h.Price)
		if !ok {
			excluded++

			continue
		}

		total = total.Add(decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(price)))
	}

	return total.InexactFloat64(), excluded
}

// Summarize builds one row per holding, in input order, plus the total.
func Summarize(holdings []Holding) Summary {
	rows := make([]Row, 0, len(holdings))

	for _, h := range holdings {
		inst := h.Instrument
		row := Row{
			Key:         inst.Key,
			Symbol:      inst.Symbol,
			Name:        inst.Name,
			Quantity:    inst.Position.Quantity,
			AverageCost: inst.Position.AverageCost,
			Price:       optional.None[float64](),
			Value:       optional.None[float64](),
			PnL:         optional.None[float64](),
		}

		price, known := knownPrice(h.Price)
		if known {
			row.Price = optional.Some(price)
		}

		if known && !inst.Position.IsFlat() {
			qty := decimal.NewFromFloat(inst.Position.Quantity)
			px := decimal.NewFromFloat(price)
			avg := decimal.NewFromFloat(inst.Position.AverageCost)

			row.Value = optional.Some(qty.Mul(px).InexactFloat64())
			row.PnL = optional.Some(px.Sub(avg).Mul(qty).InexactFloat64())
		}

		rows = append(rows, row)
	}

	total, excluded := TotalMarkToMarket(holdings)

	return Summary{
		Rows:     rows,
		Total:    total,
		Excluded: excluded,
	}
}
