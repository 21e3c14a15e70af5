package indicator

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/types"
)

// RSI represents the Relative Strength Index indicator.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator with default configuration.
func NewRSI() Indicator {
	return &RSI{
		period: 14, // Default period
	}
}

// Name returns the name of the indicator.
func (r *RSI) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

// Period returns the window length.
func (r *RSI) Period() int {
	return r.period
}

// Config configures the RSI indicator. Expected parameters: period (int).
func (r *RSI) Config(params ...any) error {
	if len(params) < 1 {
		return fmt.Errorf("Config expects at least 1 parameter: period (int)")
	}

	period, ok := params[0].(int)
	if !ok {
		return fmt.Errorf("invalid type for period parameter, expected int")
	}

	if period <= 0 {
		return fmt.Errorf("period must be a positive integer, got %d", period)
	}

	r.period = period

	return nil
}

// Compute returns the RSI series for prices.
func (r *RSI) Compute(prices []float64) []optional.Option[float64] {
	return WilderRSI(prices, r.period)
}

// WilderRSI computes the relative strength index. Indices below period are None. The
// first value, at index period, is seeded with the simple mean of the first period
// differences; later values use Wilder smoothing. A zero average loss saturates at 100.
func WilderRSI(prices []float64, period int) []optional.Option[float64] {
	out := noneSeries(len(prices))
	if period <= 0 || len(prices) < period+1 {
		return out
	}

	n := float64(period)
	avgGain := 0.0
	avgLoss := 0.0

	// First average
	for i := 1; i <= period; i++ {
		gain, loss := change(prices[i-1], prices[i])
		avgGain += gain
		avgLoss += loss
	}

	avgGain /= n
	avgLoss /= n
	out[period] = optional.Some(rsiValue(avgGain, avgLoss))

	// Subsequent averages using Wilder's smoothing method
	for i := period + 1; i < len(prices); i++ {
		gain, loss := change(prices[i-1], prices[i])
		avgGain = (avgGain*(n-1) + gain) / n
		avgLoss = (avgLoss*(n-1) + loss) / n
		out[i] = optional.Some(rsiValue(avgGain, avgLoss))
	}

	return out
}

func change(prev, cur float64) (gain, loss float64) {
	diff := cur - prev
	if diff > 0 {
		return diff, 0
	}

	return 0, -diff
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100 // Perfect uptrend
	}

	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))

	// clamp float noise
	if rsi < 0 {
		return 0
	}

	if rsi > 100 {
		return 100
	}

	return rsi
}
