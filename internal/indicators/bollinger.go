package indicators

import (
	"context"
	"fmt"
	"math"
)

// BollingerConfig holds configuration for the Bollinger Bands indicator.
type BollingerConfig struct {
	IndicatorConfig
	StdDevMultiplier float64
}

// Bollinger implements the Bollinger Bands indicator: a middle SMA band with
// upper and lower bands offset by a multiple of the rolling standard deviation.
type Bollinger struct {
	BaseIndicator
	config BollingerConfig
}

// NewBollinger creates a new Bollinger Bands indicator instance.
func NewBollinger(config BollingerConfig) *Bollinger {
	return &Bollinger{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator.
func (b *Bollinger) Name() string {
	return "BollingerBands"
}

// Calculate computes the middle band (the SMA over the configured period).
func (b *Bollinger) Calculate(ctx context.Context, series []float64) (float64, error) {
	middle, _, _, err := b.Bands(ctx, series)
	return middle, err
}

// Bands computes the middle, upper and lower band values for the last point
// of the series.
func (b *Bollinger) Bands(ctx context.Context, series []float64) (middle, upper, lower float64, err error) {
	period := b.Config.Period
	if len(series) < period {
		return 0, 0, 0, fmt.Errorf("not enough data (%d) to calculate Bollinger Bands for period %d", len(series), period)
	}

	middle, err = sma(series, period)
	if err != nil {
		return 0, 0, 0, err
	}

	// Population standard deviation over the window, the conventional
	// Bollinger formulation.
	var variance float64
	for i := len(series) - period; i < len(series); i++ {
		d := series[i] - middle
		variance += d * d
	}
	variance /= float64(period)
	stdDev := math.Sqrt(variance)

	upper = middle + b.config.StdDevMultiplier*stdDev
	lower = middle - b.config.StdDevMultiplier*stdDev
	return middle, upper, lower, nil
}
