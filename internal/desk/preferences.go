package desk

import (
	"context"
	"regexp"
	"strings"

	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
	"go.uber.org/zap"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// MaxPlayerLength bounds the player label.
const MaxPlayerLength = 64

// Preferences returns the current user preferences.
func (d *Desk) Preferences() types.Preferences {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.prefs
}

// SetTheme persists the theme.
func (d *Desk) SetTheme(theme types.Theme) error {
	if !theme.Valid() {
		return errors.Newf(errors.ErrCodeInvalidTheme, "unknown theme %q (use dark or light)", theme)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.store.SaveTheme(theme); err != nil {
		return err
	}

	d.prefs.Theme = theme

	return nil
}

// SetPlayer persists the player label stamped on new orders.
func (d *Desk) SetPlayer(player string) error {
	player = strings.TrimSpace(player)
	if len(player) > MaxPlayerLength {
		return errors.Newf(errors.ErrCodeInvalidParameter, "player label must be at most %d characters", MaxPlayerLength)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.store.SavePlayer(player); err != nil {
		return err
	}

	d.prefs.Player = player

	return nil
}

// SetBase persists a new base currency, drops the prices and histories quoted in
// the previous one, refreshes every price and force-refreshes the active instrument.
func (d *Desk) SetBase(ctx context.Context, base string) (RefreshReport, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if !currencyPattern.MatchString(base) {
		return RefreshReport{}, errors.Newf(errors.ErrCodeInvalidCurrency, "base currency must be a three-letter code, got %q", base)
	}

	d.mu.Lock()

	if err := d.store.SaveBase(base); err != nil {
		d.mu.Unlock()

		return RefreshReport{}, err
	}

	previous := d.prefs.Base
	d.prefs.Base = base

	if previous != base {
		d.live = make(map[string]*live)
	}

	d.mu.Unlock()

	d.logger.Info("Base currency changed", zap.String("from", previous), zap.String("to", base))

	report := d.RefreshAll(ctx)

	if active, ok := d.RefreshActive(ctx, true); ok {
		report.Results = mergeResult(report.Results, active)
		report.FinishedAt = d.clock.Now()
	}

	d.listeners.emit(Event{
		Type:          EventStateChanged,
		At:            d.clock.Now(),
		InstrumentKey: "",
		Order:         nil,
		Refresh:       nil,
		Status:        d.Status(),
	})

	return report, nil
}
