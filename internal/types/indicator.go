package types

import "github.com/moznion/go-optional"

type IndicatorType string

const (
	IndicatorTypeMA  IndicatorType = "ma"
	IndicatorTypeRSI IndicatorType = "rsi"
)

// IndicatorSeries holds indicator values aligned 1:1 with a PriceHistory. A None entry
// means there was not enough history at that index.
type IndicatorSeries struct {
	MA  []optional.Option[float64] `json:"ma"`
	RSI []optional.Option[float64] `json:"rsi"`
}

// Last returns the most recent value of a series, or None for an empty series.
func Last(series []optional.Option[float64]) optional.Option[float64] {
	if len(series) == 0 {
		return optional.None[float64]()
	}

	return series[len(series)-1]
}
