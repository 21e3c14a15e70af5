package desk

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/trading-desk/internal/marketdata"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
	"go.uber.org/zap"
)

var validate = validator.New()

// AddRequest describes an instrument to track.
type AddRequest struct {
	Identity types.Identity
	Symbol   string
	Name     string
}

// NewAddRequest builds a request from an instrument key such as "cg:bitcoin" or
// "fx:EURUSD". Empty symbol and name are derived from the identity.
func NewAddRequest(key, symbol, name string) (AddRequest, error) {
	id, err := types.ParseInstrumentKey(strings.TrimSpace(key))
	if err != nil {
		return AddRequest{}, errors.Wrap(errors.ErrCodeInvalidInstrument, "invalid instrument key", err)
	}

	return AddRequest{Identity: id, Symbol: symbol, Name: name}, nil
}

// AddRequestFromCandidate turns a search result into an AddRequest.
func AddRequestFromCandidate(c marketdata.Candidate) AddRequest {
	return AddRequest{Identity: c.Identity, Symbol: c.Symbol, Name: c.Name}
}

func (r AddRequest) instrument() (*types.Instrument, error) {
	switch id := r.Identity.(type) {
	case types.CryptoIdentity:
		id.ProviderID = strings.TrimSpace(id.ProviderID)
		if err := validate.Struct(id); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInstrument, "crypto instruments need a provider id", err)
		}

		symbol := strings.ToUpper(strings.TrimSpace(r.Symbol))
		if symbol == "" {
			symbol = strings.ToUpper(id.ProviderID)
		}

		name := strings.TrimSpace(r.Name)
		if name == "" {
			name = id.ProviderID
		}

		return types.NewInstrument(id, symbol, name), nil
	case types.FxPairIdentity:
		if err := validate.Struct(id); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidInstrument, err, "invalid currency pair %s", id)
		}

		return types.NewInstrument(id, id.Base+id.Quote, id.Base+"/"+id.Quote), nil
	case nil:
		return nil, errors.New(errors.ErrCodeInvalidInstrument, "instrument identity is required")
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidInstrument, "unknown identity type %T", r.Identity)
	}
}

// Add starts tracking an instrument, makes it active and runs a forced refresh of
// it. Adding a key that is already tracked returns the existing instrument
// unchanged (it still becomes active). The boolean reports whether it was created.
// Refresh failures do not fail Add; they show in the view and the status.
func (d *Desk) Add(ctx context.Context, req AddRequest) (InstrumentView, bool, error) {
	inst, err := req.instrument()
	if err != nil {
		return InstrumentView{}, false, err
	}

	d.mu.Lock()

	created := false

	if d.indexOf(inst.Key) < 0 {
		d.instruments = append(d.instruments, inst)
		created = true

		if err := d.persistInstruments(); err != nil {
			d.instruments = d.instruments[:len(d.instruments)-1]
			d.mu.Unlock()

			return InstrumentView{}, false, err
		}
	}

	d.active = inst.Key
	if err := d.store.SaveActive(inst.Key); err != nil {
		d.logger.Warn("Failed to persist active instrument", zap.String("instrument", inst.Key), zap.Error(err))
	}

	d.mu.Unlock()

	if created {
		d.logger.Info("Instrument added", zap.String("instrument", inst.Key))
		d.listeners.emit(Event{
			Type:          EventInstrumentAdded,
			At:            d.clock.Now(),
			InstrumentKey: inst.Key,
			Order:         nil,
			Refresh:       nil,
			Status:        "",
		})
	}

	d.RefreshActive(ctx, true)

	view, err := d.Instrument(inst.Key)
	if err != nil {
		return InstrumentView{}, created, err
	}

	return view, created, nil
}

// Remove stops tracking key. When key was active the first remaining instrument
// becomes active.
func (d *Desk) Remove(key string) error {
	d.mu.Lock()

	inst, idx, err := d.find(key)
	if err != nil {
		d.mu.Unlock()

		return err
	}

	prevActive := d.active
	prevList := d.instruments

	remaining := make([]*types.Instrument, 0, len(d.instruments)-1)
	remaining = append(remaining, d.instruments[:idx]...)
	remaining = append(remaining, d.instruments[idx+1:]...)
	d.instruments = remaining

	if err := d.persistInstruments(); err != nil {
		d.instruments = prevList
		d.mu.Unlock()

		return err
	}

	if d.active == key {
		d.active = ""
		if len(d.instruments) > 0 {
			d.active = d.instruments[0].Key
		}
	}

	if d.active != prevActive {
		if err := d.store.SaveActive(d.active); err != nil {
			d.logger.Warn("Failed to persist active instrument", zap.String("instrument", d.active), zap.Error(err))
		}
	}

	delete(d.live, key)
	d.market.Forget(key)
	d.mu.Unlock()

	d.logger.Info("Instrument removed", zap.String("instrument", inst.Key))
	d.listeners.emit(Event{
		Type:          EventInstrumentRemoved,
		At:            d.clock.Now(),
		InstrumentKey: key,
		Order:         nil,
		Refresh:       nil,
		Status:        "",
	})

	return nil
}

// Select makes key the active instrument and runs a forced refresh of it.
func (d *Desk) Select(ctx context.Context, key string) (RefreshResult, error) {
	d.mu.Lock()

	if _, _, err := d.find(key); err != nil {
		d.mu.Unlock()

		return RefreshResult{}, err
	}

	d.active = key
	if err := d.store.SaveActive(key); err != nil {
		d.logger.Warn("Failed to persist active instrument", zap.String("instrument", key), zap.Error(err))
	}

	d.mu.Unlock()

	result, _ := d.RefreshActive(ctx, true)

	return result, nil
}
