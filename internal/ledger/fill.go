package ledger

import (
	"math"

	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/shopspring/decimal"
)

// Commission returns execPrice × quantity × feeRate. Negative and non-finite rates
// count as zero.
func Commission(execPrice, quantity, feeRate float64) decimal.Decimal {
	if !(feeRate > 0) || math.IsInf(feeRate, 1) {
		return decimal.Zero
	}

	return decimal.NewFromFloat(execPrice).
		Mul(decimal.NewFromFloat(quantity)).
		Mul(decimal.NewFromFloat(feeRate))
}

// FillResult is the position after a fill.
type FillResult struct {
	Position types.Position
	// Clamped is set when a sell asked for more than was held.
	Clamped bool
	// Fee is the commission folded into the cost basis of a buy.
	Fee float64
}

// ApplyFill folds one filled order into a position.
//
// A buy raises the quantity and blends the average cost, fees included:
//
//	avg' = (avg × qty + exec × q + fee) / (qty + q)
//
// A sell lowers the quantity, clamped at zero, and keeps the average cost until the
// position is flat, at which point it resets to zero. No realized P&L is recorded.
func ApplyFill(pos types.Position, side types.Side, quantity, execPrice, feeRate float64) FillResult {
	qty := decimal.NewFromFloat(pos.Quantity)
	q := decimal.NewFromFloat(quantity)

	switch side {
	case types.SideBuy:
		fee := Commission(execPrice, quantity, feeRate)
		cost := decimal.NewFromFloat(execPrice).Mul(q).Add(fee)
		newQty := qty.Add(q)

		avg := decimal.Zero
		if !newQty.IsZero() {
			avg = decimal.NewFromFloat(pos.AverageCost).Mul(qty).Add(cost).Div(newQty)
		}

		fee64, _ := fee.Float64()

		return FillResult{
			Position: types.Position{
				Quantity:    newQty.InexactFloat64(),
				AverageCost: avg.InexactFloat64(),
			},
			Clamped: false,
			Fee:     fee64,
		}
	case types.SideSell:
		newQty := qty.Sub(q)
		clamped := newQty.IsNegative()

		if !newQty.IsPositive() {
			return FillResult{
				Position: types.Position{Quantity: 0, AverageCost: 0},
				Clamped:  clamped,
				Fee:      0,
			}
		}

		return FillResult{
			Position: types.Position{
				Quantity:    newQty.InexactFloat64(),
				AverageCost: pos.AverageCost,
			},
			Clamped: false,
			Fee:     0,
		}
	default:
		return FillResult{Position: pos, Clamped: false, Fee: 0}
	}
}
