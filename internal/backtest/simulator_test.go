package backtest

import (
	"context"
	"testing"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/ports"
	"papertrade/internal/signals"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// stubOracle serves a fixed daily series ending today.
type stubOracle struct {
	series []float64
}

func (o *stubOracle) CurrentPrice(ctx context.Context, asset string) (decimal.Decimal, error) {
	return decimal.NewFromFloat(o.series[len(o.series)-1]), nil
}

func (o *stubOracle) History(ctx context.Context, asset string, rangeDays int) ([]domain.PricePoint, error) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	points := make([]domain.PricePoint, len(o.series))
	for i, p := range o.series {
		points[i] = domain.PricePoint{
			Time:  end.AddDate(0, 0, i-len(o.series)+1),
			Price: p,
		}
	}
	return points, nil
}

// zigzagSeries rises and falls in 15-day legs so trend-following strategies
// produce both buys and sells.
func zigzagSeries(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		phase := i % 30
		if phase < 15 {
			s[i] = 100 + 2*float64(phase)
		} else {
			s[i] = 130 - 2*float64(phase-15)
		}
	}
	return s
}

func newTestSimulator(t *testing.T, series []float64) *Simulator {
	t.Helper()
	sim, err := New(Config{
		Oracle: &stubOracle{series: series},
		Logger: &mockLogger{},
	})
	require.NoError(t, err)
	return sim
}

func testRequest() Request {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	return Request{
		StrategyID:     signals.StrategySMACrossover,
		Asset:          "bitcoin",
		StartDate:      end.AddDate(0, 0, -20),
		EndDate:        end,
		InitialCapital: decimal.NewFromInt(10000),
	}
}

func TestSimulator_Run(t *testing.T) {
	sim := newTestSimulator(t, zigzagSeries(60))
	ctx := context.Background()
	req := testRequest()

	result, err := sim.Run(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, req.StrategyID, result.StrategyID)
	assert.Equal(t, req.Asset, result.Asset)
	assert.True(t, result.InitialCapital.Equal(req.InitialCapital))

	// One equity sample per day in the window, endpoints inclusive.
	assert.Len(t, result.EquityCurve, 21)

	// A zigzag market must trigger both sides of the crossover.
	assert.Greater(t, result.Metrics.TotalTrades, 0)
	assert.Equal(t, result.Metrics.TotalTrades, len(result.Trades))
	assert.LessOrEqual(t, result.Metrics.WinningTrades, result.Metrics.TotalTrades)

	// Final value must equal the last equity sample.
	assert.InDelta(t, result.EquityCurve[len(result.EquityCurve)-1], result.FinalValue.InexactFloat64(), 0.01)

	// Return percentage must be consistent with initial and final values.
	wantReturn := result.FinalValue.Sub(req.InitialCapital).Div(req.InitialCapital).Mul(decimal.NewFromInt(100))
	assert.True(t, result.TotalReturnPct.Equal(wantReturn))

	assert.GreaterOrEqual(t, result.Metrics.MaxDrawdownPct, 0.0)
	assert.LessOrEqual(t, result.Metrics.MaxDrawdownPct, 100.0)
}

func TestSimulator_Deterministic(t *testing.T) {
	sim := newTestSimulator(t, zigzagSeries(60))
	ctx := context.Background()
	req := testRequest()

	first, err := sim.Run(ctx, req)
	require.NoError(t, err)
	second, err := sim.Run(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical inputs must produce identical results")
}

func TestSimulator_TradeCaps(t *testing.T) {
	sim := newTestSimulator(t, zigzagSeries(60))

	result, err := sim.Run(context.Background(), testRequest())
	require.NoError(t, err)
	require.NotEmpty(t, result.Trades)

	maxSpend := decimal.NewFromInt(defaultMaxPerTrade)
	maxShares := decimal.NewFromInt(defaultMaxSharesPerTrade)
	for _, tr := range result.Trades {
		switch tr.Side {
		case domain.Buy:
			assert.True(t, tr.Value.LessThanOrEqual(maxSpend), "buy value %s exceeds cap", tr.Value)
		case domain.Sell:
			assert.True(t, tr.Quantity.LessThanOrEqual(maxShares), "sell quantity %s exceeds cap", tr.Quantity)
		}
	}
}

func TestSimulator_Validation(t *testing.T) {
	sim := newTestSimulator(t, zigzagSeries(60))
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*Request)
		wantErr error
	}{
		{
			name:    "missing strategy",
			mutate:  func(r *Request) { r.StrategyID = "" },
			wantErr: ports.ErrUnknownStrategy,
		},
		{
			name:    "unknown strategy",
			mutate:  func(r *Request) { r.StrategyID = "momentum" },
			wantErr: ports.ErrUnknownStrategy,
		},
		{
			name:    "missing asset",
			mutate:  func(r *Request) { r.Asset = "" },
			wantErr: ports.ErrInvalidOrder,
		},
		{
			name:    "end before start",
			mutate:  func(r *Request) { r.EndDate = r.StartDate.AddDate(0, 0, -1) },
			wantErr: ports.ErrInvalidOrder,
		},
		{
			name:    "zero capital",
			mutate:  func(r *Request) { r.InitialCapital = decimal.Zero },
			wantErr: ports.ErrInvalidOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest()
			tt.mutate(&req)
			_, err := sim.Run(ctx, req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSimulator_NoDataInWindow(t *testing.T) {
	sim := newTestSimulator(t, zigzagSeries(60))

	// A window in the far future has no overlapping price points.
	req := testRequest()
	req.StartDate = req.StartDate.AddDate(1, 0, 0)
	req.EndDate = req.EndDate.AddDate(1, 0, 0)

	_, err := sim.Run(context.Background(), req)
	require.ErrorIs(t, err, ports.ErrPriceUnavailable)
}

func TestSimulator_PartialHistoryFailsLoudly(t *testing.T) {
	// Ten days of history cannot cover a 20-day window; the run must fail
	// rather than silently simulate only the covered tail.
	sim := newTestSimulator(t, zigzagSeries(10))

	_, err := sim.Run(context.Background(), testRequest())
	require.ErrorIs(t, err, ports.ErrPriceUnavailable)
	assert.Contains(t, err.Error(), "requested start")
}

func TestSimulator_BuyAndHoldSpendsCappedPerDay(t *testing.T) {
	// A monotonically rising market makes the crossover buy every day until
	// cash is exhausted; each buy must spend at most the per-trade cap.
	rising := make([]float64, 60)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	sim := newTestSimulator(t, rising)

	result, err := sim.Run(context.Background(), testRequest())
	require.NoError(t, err)

	require.NotEmpty(t, result.Trades)
	for _, tr := range result.Trades {
		assert.Equal(t, domain.Buy, tr.Side)
	}
	// 10000 of capital at 1000 per buy is exhausted after ten buys.
	assert.LessOrEqual(t, len(result.Trades), 10)

	// Rising prices with a full position always finish ahead.
	assert.True(t, result.FinalValue.GreaterThan(result.InitialCapital))
}
