package desk

import (
	"context"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// cycle runs one refresh of key: the current price, optionally the history, then
// reconciliation of open orders against the new price. At most one cycle per
// instrument runs at a time. Fetches happen without the desk lock; the results are
// applied under it and dropped when the instrument is gone or the base changed.
func (d *Desk) cycle(ctx context.Context, key string, withHistory, force bool) RefreshResult {
	lock := d.cycleLock(key)
	lock.Lock()
	defer lock.Unlock()

	result := RefreshResult{
		Key:              key,
		Price:            optional.None[float64](),
		HistoryRefreshed: false,
		Filled:           make([]types.Order, 0),
		Stale:            false,
		Err:              nil,
	}

	d.mu.RLock()
	inst, _, err := d.find(key)
	if err != nil {
		d.mu.RUnlock()

		result.Stale = true

		return result
	}

	target := inst.Clone()
	base := d.prefs.Base
	d.mu.RUnlock()

	quote, priceErr := d.market.CurrentPrice(ctx, target, base)

	var (
		history   types.PriceHistory
		refreshed bool
		histErr   error
	)

	if withHistory {
		history, refreshed, histErr = d.market.History(ctx, target, base, force)
	}

	result.Err = multierr.Combine(priceErr, histErr)

	events := make([]Event, 0)

	d.mu.Lock()

	inst, _, err = d.find(key)
	if err != nil || d.prefs.Base != base {
		// a history fetched for a removed instrument must not outlive it
		if err != nil {
			d.market.Forget(key)
		}

		d.mu.Unlock()

		result.Stale = true
		result.Err = nil

		return result
	}

	state := d.liveFor(key)

	if priceErr == nil {
		state.price = optional.Some(quote.Price)
		state.change = quote.Change
		state.pricedAt = optional.Some(quote.At)
	}

	if withHistory && (refreshed || (!state.hasHistory && history.Len() > 0)) {
		state.history = history
		state.hasHistory = true
		state.indicators = d.computeIndicators(history)
		result.HistoryRefreshed = refreshed
	}

	result.Price = state.price

	if priceErr == nil {
		filled := d.ledger.Reconcile(inst, state.price)
		if len(filled) > 0 {
			if err := d.persistInstruments(); err != nil {
				d.logger.Error("Failed to persist reconciled orders",
					zap.String("instrument", key),
					zap.Error(err),
				)
			}

			for _, order := range filled {
				events = append(events, d.orderEvent(key, order))
			}

			result.Filled = filled
		}
	}

	d.mu.Unlock()

	d.listeners.emit(events...)

	return result
}

// RefreshAll refreshes the current price of every instrument concurrently and
// reconciles their open orders. Failures are collected in the report.
func (d *Desk) RefreshAll(ctx context.Context) RefreshReport {
	d.mu.RLock()
	keys := make([]string, len(d.instruments))
	for i, inst := range d.instruments {
		keys[i] = inst.Key
	}
	d.mu.RUnlock()

	report := RefreshReport{
		StartedAt:  d.clock.Now(),
		FinishedAt: d.clock.Now(),
		Results:    make([]RefreshResult, len(keys)),
	}

	var g errgroup.Group

	for i, key := range keys {
		g.Go(func() error {
			report.Results[i] = d.cycle(ctx, key, false, false)

			return nil
		})
	}

	_ = g.Wait()

	report.FinishedAt = d.clock.Now()

	d.finishRefresh(report)

	return report
}

// RefreshActive refreshes the price and the history of the active instrument and
// recomputes its indicators. A forced refresh bypasses the history cache. It
// returns false when no instrument is active.
func (d *Desk) RefreshActive(ctx context.Context, force bool) (RefreshResult, bool) {
	d.mu.RLock()
	key := d.active
	d.mu.RUnlock()

	if key == "" {
		return RefreshResult{}, false
	}

	started := d.clock.Now()
	result := d.cycle(ctx, key, true, force)

	d.finishRefresh(RefreshReport{
		StartedAt:  started,
		FinishedAt: d.clock.Now(),
		Results:    []RefreshResult{result},
	})

	return result, true
}

func (d *Desk) finishRefresh(report RefreshReport) {
	status := report.Status()
	d.setStatus(status)

	if err := report.Err(); err != nil {
		d.logger.Warn("Refresh completed with failures",
			zap.Strings("failed", report.Failed()),
			zap.Error(err),
		)
	} else {
		d.logger.Debug("Refresh completed", zap.Int("instruments", len(report.Results)))
	}

	digest := report.Digest()
	d.listeners.emit(Event{
		Type:          EventRefreshCompleted,
		At:            report.FinishedAt,
		InstrumentKey: "",
		Order:         nil,
		Refresh:       &digest,
		Status:        status,
	})
}
