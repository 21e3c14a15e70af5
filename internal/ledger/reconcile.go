package ledger

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/types"
)

// Reconcile fills every open order of inst whose condition holds at referencePrice,
// scanning in stored order (newest first) without stopping at the first fill. Each
// fill executes at the reference price. Filled orders are never revisited, so running
// it twice at the same price fills nothing the second time. Without a reference price
// it does nothing. It returns the orders filled by this pass.
func (l *Ledger) Reconcile(inst *types.Instrument, referencePrice optional.Option[float64]) []types.Order {
	ref, ok := knownPrice(referencePrice)
	if !ok {
		return nil
	}

	filled := make([]types.Order, 0)

	for i := range inst.Orders {
		order := &inst.Orders[i]
		if !order.IsOpen() || !order.CanFillAt(ref) {
			continue
		}

		order.Status = types.OrderStatusFilled
		order.ExecPrice = optional.Some(ref)

		l.applyFill(inst, *order, ref)
		filled = append(filled, order.Clone())
	}

	return filled
}
