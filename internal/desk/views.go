package desk

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/portfolio"
	"github.com/rxtech-lab/trading-desk/internal/types"
)

// InstrumentView is a read-only snapshot of an instrument and its live data.
type InstrumentView struct {
	Instrument types.Instrument           `json:"instrument"`
	Price      optional.Option[float64]   `json:"price"`
	Change     optional.Option[float64]   `json:"change"`
	PricedAt   optional.Option[time.Time] `json:"priced_at"`
	Active     bool                       `json:"active"`
	// History and Indicators are only set on the detail view.
	History    *types.PriceHistory      `json:"history,omitempty"`
	Indicators *types.IndicatorSeries   `json:"indicators,omitempty"`
	LastMA     optional.Option[float64] `json:"last_ma"`
	LastRSI    optional.Option[float64] `json:"last_rsi"`
}

// StateView is the whole desk as exposed to presentation.
type StateView struct {
	Preferences types.Preferences `json:"preferences"`
	Active      string            `json:"active"`
	Status      Status            `json:"status"`
	Instruments []InstrumentView  `json:"instruments"`
	Portfolio   portfolio.Summary `json:"portfolio"`
}

// view builds the view of inst. Callers hold mu.
func (d *Desk) view(inst *types.Instrument, detail bool) InstrumentView {
	v := InstrumentView{
		Instrument: *inst.Clone(),
		Price:      optional.None[float64](),
		Change:     optional.None[float64](),
		PricedAt:   optional.None[time.Time](),
		Active:     inst.Key == d.active,
		History:    nil,
		Indicators: nil,
		LastMA:     optional.None[float64](),
		LastRSI:    optional.None[float64](),
	}

	state, ok := d.live[inst.Key]
	if !ok {
		return v
	}

	v.Price = state.price
	v.Change = state.change
	v.PricedAt = state.pricedAt

	if state.hasHistory {
		v.LastMA = types.Last(state.indicators.MA)
		v.LastRSI = types.Last(state.indicators.RSI)

		if detail {
			samples := make([]types.PriceSample, len(state.history.Samples))
			copy(samples, state.history.Samples)
			history := types.PriceHistory{Samples: samples, RefreshedAt: state.history.RefreshedAt}

			indicators := types.IndicatorSeries{
				MA:  append([]optional.Option[float64](nil), state.indicators.MA...),
				RSI: append([]optional.Option[float64](nil), state.indicators.RSI...),
			}

			v.History = &history
			v.Indicators = &indicators
		}
	}

	return v
}

// Instruments returns every tracked instrument in insertion order.
func (d *Desk) Instruments() []InstrumentView {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]InstrumentView, 0, len(d.instruments))
	for _, inst := range d.instruments {
		out = append(out, d.view(inst, false))
	}

	return out
}

// Instrument returns the detail view of key, including history and indicators.
func (d *Desk) Instrument(key string) (InstrumentView, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	inst, _, err := d.find(key)
	if err != nil {
		return InstrumentView{}, err
	}

	return d.view(inst, true), nil
}

// Active returns the key of the active instrument, or "" when none is tracked.
func (d *Desk) Active() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.active
}

// Portfolio marks every position to its last known price.
func (d *Desk) Portfolio() portfolio.Summary {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.portfolio()
}

func (d *Desk) portfolio() portfolio.Summary {
	holdings := make([]portfolio.Holding, 0, len(d.instruments))
	for _, inst := range d.instruments {
		holdings = append(holdings, portfolio.Holding{
			Instrument: inst,
			Price:      d.priceOf(inst.Key),
		})
	}

	return portfolio.Summarize(holdings)
}

// State returns a snapshot of the whole desk.
func (d *Desk) State() StateView {
	d.mu.RLock()
	defer d.mu.RUnlock()

	instruments := make([]InstrumentView, 0, len(d.instruments))
	for _, inst := range d.instruments {
		instruments = append(instruments, d.view(inst, false))
	}

	return StateView{
		Preferences: d.prefs,
		Active:      d.active,
		Status:      d.status,
		Instruments: instruments,
		Portfolio:   d.portfolio(),
	}
}
