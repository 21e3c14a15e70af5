package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// PriceSample is a single (time, price) observation in the account's base currency.
type PriceSample struct {
	Time  time.Time `json:"t"`
	Price float64   `json:"p"`
}

// PriceHistory is a bounded, time-ordered series for one instrument. It is replaced
// wholesale on refresh.
type PriceHistory struct {
	Samples     []PriceSample `json:"samples"`
	RefreshedAt time.Time     `json:"refreshed_at"`
}

// Prices returns the sample prices in order.
func (h PriceHistory) Prices() []float64 {
	out := make([]float64, len(h.Samples))
	for i, s := range h.Samples {
		out[i] = s.Price
	}

	return out
}

// Len returns the number of samples.
func (h PriceHistory) Len() int {
	return len(h.Samples)
}

// Quote is the latest reference price with an optional trailing percentage change
// (24h for crypto, absent for most FX upstreams).
type Quote struct {
	Price  float64                  `json:"price"`
	Change optional.Option[float64] `json:"change"`
	At     time.Time                `json:"at"`
}
