package signals

import (
	"context"
	"testing"

	"papertrade/internal/domain"
	"papertrade/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steadily rising and falling daily closes, long enough for every strategy's
// default parameters.
func risingSeries(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = 100 + float64(i)
	}
	return s
}

func fallingSeries(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = 100 + float64(n) - float64(i)
	}
	return s
}

func TestEvaluate_DecisionRules(t *testing.T) {
	tests := []struct {
		name       string
		strategyID string
		params     map[string]float64
		series     []float64
		wantType   domain.SignalType
	}{
		{
			name:       "SMA crossover buys a rising market",
			strategyID: StrategySMACrossover,
			series:     risingSeries(40),
			wantType:   domain.SignalBuy,
		},
		{
			name:       "SMA crossover sells a falling market",
			strategyID: StrategySMACrossover,
			series:     fallingSeries(40),
			wantType:   domain.SignalSell,
		},
		{
			name:       "RSI sells an overbought market",
			strategyID: StrategyRSI,
			series:     risingSeries(40), // all gains, RSI = 100
			wantType:   domain.SignalSell,
		},
		{
			name:       "RSI buys an oversold market",
			strategyID: StrategyRSI,
			series:     fallingSeries(40), // all losses, RSI = 0
			wantType:   domain.SignalBuy,
		},
		{
			name:       "RSI holds a neutral market",
			strategyID: StrategyRSI,
			params:     map[string]float64{"period": 5},
			series:     []float64{100, 101, 100, 101, 100, 101, 100, 101, 100, 101},
			wantType:   domain.SignalHold,
		},
		{
			name:       "MACD buys when line is above signal",
			strategyID: StrategyMACD,
			series:     append(fallingSeries(30), risingSeries(30)...), // turnaround
			wantType:   domain.SignalBuy,
		},
		{
			name:       "Bollinger sells at the upper band",
			strategyID: StrategyBollingerBand,
			series:     append(risingSeries(19), 200), // spike to the top of the band
			wantType:   domain.SignalSell,
		},
		{
			name:       "Bollinger buys at the lower band",
			strategyID: StrategyBollingerBand,
			series:     append(risingSeries(19), 20), // crash below the band
			wantType:   domain.SignalBuy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval, err := Evaluate(context.Background(), tt.strategyID, tt.params, tt.series)
			require.NoError(t, err)

			assert.Equal(t, tt.wantType, eval.Type)
			assert.GreaterOrEqual(t, eval.Strength, 0.0)
			assert.LessOrEqual(t, eval.Strength, 1.0)
			assert.NotEmpty(t, eval.Indicator)
		})
	}
}

func TestEvaluate_MACDStrengthScalesWithIndicator(t *testing.T) {
	turnaround := append(fallingSeries(30), risingSeries(30)...)
	expensive := make([]float64, len(turnaround))
	for i, v := range turnaround {
		expensive[i] = v * 1000
	}

	cheap, err := Evaluate(context.Background(), StrategyMACD, nil, turnaround)
	require.NoError(t, err)
	rich, err := Evaluate(context.Background(), StrategyMACD, nil, expensive)
	require.NoError(t, err)

	// Strength reflects the divergence on the indicator's own scale, not
	// the asset's price, so it survives a 1000x price difference.
	assert.Greater(t, cheap.Strength, 0.1)
	assert.InDelta(t, cheap.Strength, rich.Strength, 1e-9)
}

func TestEvaluate_Deterministic(t *testing.T) {
	series := risingSeries(60)

	first, err := Evaluate(context.Background(), StrategyMACD, nil, series)
	require.NoError(t, err)
	second, err := Evaluate(context.Background(), StrategyMACD, nil, series)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEvaluate_FlatSeriesBollingerHolds(t *testing.T) {
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 100
	}

	eval, err := Evaluate(context.Background(), StrategyBollingerBand, nil, flat)
	require.NoError(t, err)

	assert.Equal(t, domain.SignalHold, eval.Type)
	assert.Zero(t, eval.Strength)
}

func TestEvaluate_UnknownStrategy(t *testing.T) {
	_, err := Evaluate(context.Background(), "momentum", nil, risingSeries(40))
	require.ErrorIs(t, err, ports.ErrUnknownStrategy)
}

func TestEvaluate_InsufficientData(t *testing.T) {
	_, err := Evaluate(context.Background(), StrategyMACD, nil, risingSeries(10))
	require.Error(t, err)
}

func TestRequiredDataPoints(t *testing.T) {
	tests := []struct {
		strategyID string
		params     map[string]float64
		want       int
	}{
		{StrategySMACrossover, nil, 20},
		{StrategySMACrossover, map[string]float64{"longPeriod": 50}, 50},
		{StrategyRSI, nil, 15},
		{StrategyMACD, nil, 34},
		{StrategyBollingerBand, nil, 20},
	}

	for _, tt := range tests {
		t.Run(tt.strategyID, func(t *testing.T) {
			got, err := RequiredDataPoints(tt.strategyID, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := RequiredDataPoints("momentum", nil)
	require.ErrorIs(t, err, ports.ErrUnknownStrategy)
}
