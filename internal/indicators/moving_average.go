package indicators

import (
	"context"
	"fmt"
)

// MovingAverageType defines the type of moving average.
type MovingAverageType string

const (
	// SimpleMovingAverage represents a simple moving average.
	SimpleMovingAverage MovingAverageType = "SMA"
	// ExponentialMovingAverage represents an exponential moving average.
	ExponentialMovingAverage MovingAverageType = "EMA"
)

// MovingAverageConfig holds configuration for moving average indicators.
type MovingAverageConfig struct {
	IndicatorConfig
	Type MovingAverageType
}

// MovingAverage implements both SMA and EMA indicators.
type MovingAverage struct {
	BaseIndicator
	config MovingAverageConfig
}

// NewMovingAverage creates a new moving average indicator instance.
func NewMovingAverage(config MovingAverageConfig) *MovingAverage {
	return &MovingAverage{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator.
func (m *MovingAverage) Name() string {
	return string(m.config.Type)
}

// Calculate computes the moving average value based on the configured type.
func (m *MovingAverage) Calculate(ctx context.Context, series []float64) (float64, error) {
	switch m.config.Type {
	case SimpleMovingAverage:
		return sma(series, m.Config.Period)
	case ExponentialMovingAverage:
		return ema(series, m.Config.Period)
	default:
		return 0, fmt.Errorf("unsupported moving average type: %s", m.config.Type)
	}
}

// sma computes the simple moving average of the last period points.
func sma(series []float64, period int) (float64, error) {
	if len(series) < period {
		return 0, fmt.Errorf("not enough data (%d) to calculate SMA for period %d", len(series), period)
	}

	total := 0.0
	for i := len(series) - period; i < len(series); i++ {
		total += series[i]
	}
	return total / float64(period), nil
}

// ema computes the exponential moving average over the whole series, seeded
// with the SMA of the first period points.
func ema(series []float64, period int) (float64, error) {
	values, err := emaSeries(series, period)
	if err != nil {
		return 0, err
	}
	return values[len(values)-1], nil
}

// emaSeries computes the running EMA. The returned slice is aligned so that
// index i corresponds to series index i+period-1.
func emaSeries(series []float64, period int) ([]float64, error) {
	if len(series) < period {
		return nil, fmt.Errorf("not enough data (%d) to calculate EMA for period %d", len(series), period)
	}

	multiplier := 2.0 / float64(period+1)

	seed, err := sma(series[:period], period)
	if err != nil {
		return nil, fmt.Errorf("failed to seed EMA: %w", err)
	}

	values := make([]float64, 0, len(series)-period+1)
	current := seed
	values = append(values, current)
	for i := period; i < len(series); i++ {
		current = (series[i]-current)*multiplier + current
		values = append(values, current)
	}
	return values, nil
}
