package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/trading-desk/internal/types"
)

// PriceGenerator generates price histories for tests.
type PriceGenerator struct {
	rng *rand.Rand
}

// NewPriceGenerator creates a new PriceGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewPriceGenerator(seed int64) *PriceGenerator {
	return &PriceGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how prices are generated.
type GeneratorConfig struct {
	// StartTime is the time of the first sample
	StartTime time.Time
	// Interval is the duration between samples
	Interval time.Duration
	// Count is the number of samples to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% per sample)
	Volatility float64
	// Trend is the drift over the whole series (-0.5 to 0.5 for bearish to bullish)
	Trend float64
}

// DefaultConfig returns 90 days of hourly samples.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		StartTime:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:     time.Hour,
		Count:        90 * 24,
		InitialPrice: 100.0,
		Volatility:   0.01,
		Trend:        0.0,
	}
}

// Generate creates a time-ordered price series following a geometric Brownian motion.
func (g *PriceGenerator) Generate(config GeneratorConfig) []types.PriceSample {
	samples := make([]types.PriceSample, config.Count)
	price := config.InitialPrice
	t := config.StartTime

	for i := 0; i < config.Count; i++ {
		samples[i] = types.PriceSample{
			Time:  t,
			Price: roundToDecimals(price, 4),
		}

		// Using Box-Muller transform for normal distribution
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := config.Trend / float64(config.Count)

		next := price * (1 + config.Volatility*z + drift)
		if next <= 0 {
			next = price * 0.99 // Prevent negative prices
		}

		price = next
		t = t.Add(config.Interval)
	}

	return samples
}

// GenerateHistory wraps Generate in a PriceHistory refreshed at the last sample.
func (g *PriceGenerator) GenerateHistory(config GeneratorConfig) types.PriceHistory {
	samples := g.Generate(config)

	refreshed := config.StartTime
	if len(samples) > 0 {
		refreshed = samples[len(samples)-1].Time
	}

	return types.PriceHistory{
		Samples:     samples,
		RefreshedAt: refreshed,
	}
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
