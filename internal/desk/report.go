package desk

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"go.uber.org/multierr"
)

type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
)

// RefreshResult is the outcome of one refresh cycle of one instrument.
type RefreshResult struct {
	Key   string
	Price optional.Option[float64]
	// HistoryRefreshed is set when a new history was fetched and indicators recomputed.
	HistoryRefreshed bool
	// Filled lists the open orders filled by reconciliation against the new price.
	Filled []types.Order
	// Stale is set when the instrument was removed or the base currency changed while
	// fetching; nothing was applied.
	Stale bool
	Err   error
}

// RefreshReport aggregates the results of a refresh of several instruments.
type RefreshReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []RefreshResult
}

// mergeResult replaces the result for the same instrument, or appends it when absent.
func mergeResult(results []RefreshResult, result RefreshResult) []RefreshResult {
	for i := range results {
		if results[i].Key == result.Key {
			results[i] = result

			return results
		}
	}

	return append(results, result)
}

// Err combines every per-instrument failure, or nil when all succeeded.
func (r RefreshReport) Err() error {
	var err error

	for _, res := range r.Results {
		err = multierr.Append(err, res.Err)
	}

	return err
}

// Failed returns the keys whose refresh failed.
func (r RefreshReport) Failed() []string {
	out := make([]string, 0)

	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res.Key)
		}
	}

	return out
}

// Filled returns every order filled during the refresh.
func (r RefreshReport) Filled() []types.Order {
	out := make([]types.Order, 0)

	for _, res := range r.Results {
		out = append(out, res.Filled...)
	}

	return out
}

// Status is degraded when any instrument failed to refresh.
func (r RefreshReport) Status() Status {
	if r.Err() != nil {
		return StatusDegraded
	}

	return StatusOK
}

// RefreshDigest is the serializable summary of a refresh.
type RefreshDigest struct {
	Instruments int      `json:"instruments"`
	Failed      []string `json:"failed"`
	Filled      int      `json:"filled"`
	Errors      []string `json:"errors"`
}

// Digest summarizes the report for events and API responses.
func (r RefreshReport) Digest() RefreshDigest {
	errs := make([]string, 0)
	for _, err := range multierr.Errors(r.Err()) {
		errs = append(errs, err.Error())
	}

	return RefreshDigest{
		Instruments: len(r.Results),
		Failed:      r.Failed(),
		Filled:      len(r.Filled()),
		Errors:      errs,
	}
}
