package indicator

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/types"
)

// MA indicator implements Simple Moving Average calculation.
type MA struct {
	period int
}

// NewMA creates a new MA indicator with default configuration.
func NewMA() Indicator {
	return &MA{
		period: 14, // Default period
	}
}

// Name returns the name of the indicator.
func (m *MA) Name() types.IndicatorType {
	return types.IndicatorTypeMA
}

// Period returns the window length.
func (m *MA) Period() int {
	return m.period
}

// Expected parameters: period (int).
func (m *MA) Config(params ...any) error {
	if len(params) != 1 {
		return fmt.Errorf("Config expects 1 parameter: period (int)")
	}

	period, ok := params[0].(int)
	if !ok {
		// Try to convert to float first
		periodFloat, ok := params[0].(float64)
		if !ok {
			return fmt.Errorf("invalid type for period parameter, expected int or float")
		}

		period = int(periodFloat)
	}

	if period <= 0 {
		return fmt.Errorf("period must be a positive integer, got %d", period)
	}

	m.period = period

	return nil
}

// Compute returns the simple moving average of prices. Index i holds the mean of
// prices[i-period+1..i] once i >= period-1 and None before that.
func (m *MA) Compute(prices []float64) []optional.Option[float64] {
	return SMA(prices, m.period)
}

// SMA computes a simple moving average with a running sum.
func SMA(prices []float64, period int) []optional.Option[float64] {
	out := noneSeries(len(prices))
	if period <= 0 {
		return out
	}

	sum := 0.0
	n := float64(period)

	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}

		if i >= period-1 {
			out[i] = optional.Some(sum / n)
		}
	}

	return out
}
