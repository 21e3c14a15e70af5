package desk

import (
	"github.com/rxtech-lab/trading-desk/internal/types"
)

// PlaceOrder validates req, fills it against the last known price of key when
// possible and persists the result. Validation, fill and persistence form one unit:
// when persisting fails the instrument is restored and the error returned. An empty
// player falls back to the current player label.
func (d *Desk) PlaceOrder(key string, req types.OrderRequest) (types.Order, error) {
	order, err := func() (types.Order, error) {
		d.mu.Lock()
		defer d.mu.Unlock()

		if req.Player == "" {
			req.Player = d.prefs.Player
		}

		return d.mutate(key, func(inst *types.Instrument) (types.Order, error) {
			return d.ledger.PlaceOrder(inst, d.priceOf(key), req)
		})
	}()
	if err != nil {
		return types.Order{}, err
	}

	d.listeners.emit(d.orderEvent(key, order))

	return order, nil
}

// ClosePosition sells the whole holding of key at the last known price.
func (d *Desk) ClosePosition(key string, feeRate float64) (types.Order, error) {
	order, err := func() (types.Order, error) {
		d.mu.Lock()
		defer d.mu.Unlock()

		player := d.prefs.Player

		return d.mutate(key, func(inst *types.Instrument) (types.Order, error) {
			return d.ledger.ClosePosition(inst, d.priceOf(key), feeRate, player)
		})
	}()
	if err != nil {
		return types.Order{}, err
	}

	d.listeners.emit(d.orderEvent(key, order))

	return order, nil
}

// mutate applies fn to a copy of the instrument and swaps the copy in only once it
// has been persisted. Callers hold mu.
func (d *Desk) mutate(key string, fn func(inst *types.Instrument) (types.Order, error)) (types.Order, error) {
	inst, idx, err := d.find(key)
	if err != nil {
		return types.Order{}, err
	}

	working := inst.Clone()

	order, err := fn(working)
	if err != nil {
		return types.Order{}, err
	}

	d.instruments[idx] = working

	if err := d.persistInstruments(); err != nil {
		d.instruments[idx] = inst

		return types.Order{}, err
	}

	return order, nil
}
