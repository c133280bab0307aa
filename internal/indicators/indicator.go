package indicators

import "context"

// Indicator represents a technical indicator that can be calculated from an
// ordered price series. Implementations are pure and deterministic: the same
// series always yields the same value.
type Indicator interface {
	// Calculate computes the indicator value for the given price series.
	Calculate(ctx context.Context, series []float64) (float64, error)

	// RequiredDataPoints returns the minimum series length needed for calculation.
	RequiredDataPoints() int

	// Name returns the name of the indicator.
	Name() string
}

// IndicatorConfig holds common configuration for indicators.
type IndicatorConfig struct {
	Period int
}

// BaseIndicator provides common functionality for indicators.
type BaseIndicator struct {
	Config IndicatorConfig
}

// RequiredDataPoints returns the minimum series length needed for calculation.
func (b *BaseIndicator) RequiredDataPoints() int {
	return b.Config.Period
}
