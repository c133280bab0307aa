package indicators

import (
	"context"
	"fmt"
)

// MACDConfig holds configuration for the MACD indicator.
type MACDConfig struct {
	FastPeriod   int
	SlowPeriod   int
	SignalPeriod int
}

// MACD implements the Moving Average Convergence Divergence indicator:
// the MACD line is EMA(fast) - EMA(slow), and the signal line is an EMA of
// the MACD line over the signal period.
type MACD struct {
	config MACDConfig
}

// NewMACD creates a new MACD indicator instance.
func NewMACD(config MACDConfig) *MACD {
	return &MACD{config: config}
}

// Name returns the name of the indicator.
func (m *MACD) Name() string {
	return "MACD"
}

// RequiredDataPoints returns the minimum series length needed before both
// the MACD line and its signal line are defined.
func (m *MACD) RequiredDataPoints() int {
	return m.config.SlowPeriod + m.config.SignalPeriod - 1
}

// Calculate computes the current MACD line value.
func (m *MACD) Calculate(ctx context.Context, series []float64) (float64, error) {
	macdLine, _, err := m.Lines(ctx, series)
	return macdLine, err
}

// Lines computes the current MACD line and signal line values.
func (m *MACD) Lines(ctx context.Context, series []float64) (macdLine, signalLine float64, err error) {
	if m.config.FastPeriod >= m.config.SlowPeriod {
		return 0, 0, fmt.Errorf("MACD fast period %d must be less than slow period %d", m.config.FastPeriod, m.config.SlowPeriod)
	}
	if len(series) < m.RequiredDataPoints() {
		return 0, 0, fmt.Errorf("not enough data (%d) to calculate MACD(%d,%d,%d)",
			len(series), m.config.FastPeriod, m.config.SlowPeriod, m.config.SignalPeriod)
	}

	fast, err := emaSeries(series, m.config.FastPeriod)
	if err != nil {
		return 0, 0, err
	}
	slow, err := emaSeries(series, m.config.SlowPeriod)
	if err != nil {
		return 0, 0, err
	}

	// Both EMA series are defined from series index slowPeriod-1 onward.
	offset := m.config.SlowPeriod - m.config.FastPeriod
	macdSeries := make([]float64, len(slow))
	for i := range slow {
		macdSeries[i] = fast[i+offset] - slow[i]
	}

	signal, err := emaSeries(macdSeries, m.config.SignalPeriod)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to calculate MACD signal line: %w", err)
	}

	return macdSeries[len(macdSeries)-1], signal[len(signal)-1], nil
}
