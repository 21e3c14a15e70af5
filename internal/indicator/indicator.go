package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/types"
)

// Indicator is a pure transform over a price series. The output is aligned 1:1 with
// the input; None marks indices without enough history.
type Indicator interface {
	// Name returns the name of the indicator
	Name() types.IndicatorType
	// Config configures the indicator, typically with its period
	Config(params ...any) error
	// Period returns the configured window
	Period() int
	// Compute returns the full indicator series for prices
	Compute(prices []float64) []optional.Option[float64]
}

func noneSeries(n int) []optional.Option[float64] {
	out := make([]optional.Option[float64], n)
	for i := range out {
		out[i] = optional.None[float64]()
	}

	return out
}
