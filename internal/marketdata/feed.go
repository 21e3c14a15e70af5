// Package marketdata is the provider-agnostic access layer for prices and price
// history. Upstream adapters live in pkg/marketdata/provider; this package owns the
// feed contract, the per-upstream rate gate and the history cache.
package marketdata

import (
	"context"
	"time"

	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
)

// Feed serves one instrument kind. Prices are expressed in the base currency.
type Feed interface {
	// CurrentPrice returns the latest reference price and, when the upstream has one,
	// the trailing percentage change.
	CurrentPrice(ctx context.Context, id types.Identity, base string) (types.Quote, error)
	// History returns time-ordered samples covering lookback up to now.
	History(ctx context.Context, id types.Identity, base string, lookback time.Duration) ([]types.PriceSample, error)
}

// Candidate is a search result that can be added as an instrument.
type Candidate struct {
	Key      string               `json:"key"`
	Symbol   string               `json:"symbol"`
	Name     string               `json:"name"`
	Identity types.Identity       `json:"-"`
	Kind     types.InstrumentKind `json:"kind"`
	Score    int                  `json:"score"`
}

// Instrument creates a fresh instrument for the candidate.
func (c Candidate) Instrument() *types.Instrument {
	return types.NewInstrument(c.Identity, c.Symbol, c.Name)
}

// Searcher finds crypto instruments by free text.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// FetchError wraps an upstream failure. Errors that already carry a market data code
// are returned unchanged.
func FetchError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	if errors.IsFetchError(err) {
		return err
	}

	return errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, format, args...)
}
