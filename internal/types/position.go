package types

// Position is the long-only holding of one instrument.
// AverageCost is zero whenever Quantity is zero.
type Position struct {
	Quantity float64 `json:"qty"`
	// AverageCost is the weighted-average acquisition cost per unit, fees included.
	AverageCost float64 `json:"avg"`
}

// IsFlat reports whether nothing is held.
func (p Position) IsFlat() bool {
	return p.Quantity <= 0
}

// UnrealizedPnL returns (price - avg) × qty.
func (p Position) UnrealizedPnL(price float64) float64 {
	if p.IsFlat() {
		return 0
	}

	return (price - p.AverageCost) * p.Quantity
}
