package indicator

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/types"
)

// Engine recomputes the indicator series of an instrument from its full price history.
// It keeps no per-instrument state; every call starts from scratch.
type Engine struct {
	registry IndicatorRegistry
}

// NewEngine creates an engine with a moving average and an RSI of the given periods.
func NewEngine(maPeriod, rsiPeriod int) (*Engine, error) {
	ma := NewMA()
	if err := ma.Config(maPeriod); err != nil {
		return nil, fmt.Errorf("failed to configure MA: %w", err)
	}

	rsi := NewRSI()
	if err := rsi.Config(rsiPeriod); err != nil {
		return nil, fmt.Errorf("failed to configure RSI: %w", err)
	}

	registry := NewIndicatorRegistry()
	for _, ind := range []Indicator{ma, rsi} {
		if err := registry.RegisterIndicator(ind); err != nil {
			return nil, err
		}
	}

	return &Engine{registry: registry}, nil
}

// Registry exposes the configured indicators.
func (e *Engine) Registry() IndicatorRegistry {
	return e.registry
}

// Compute returns the MA and RSI series aligned with history.
func (e *Engine) Compute(history types.PriceHistory) types.IndicatorSeries {
	prices := history.Prices()

	return types.IndicatorSeries{
		MA:  e.series(types.IndicatorTypeMA, prices),
		RSI: e.series(types.IndicatorTypeRSI, prices),
	}
}

func (e *Engine) series(name types.IndicatorType, prices []float64) []optional.Option[float64] {
	ind, err := e.registry.GetIndicator(name)
	if err != nil {
		return noneSeries(len(prices))
	}

	return ind.Compute(prices)
}
