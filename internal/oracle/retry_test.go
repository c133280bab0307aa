package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/ports"

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

// flakyOracle fails a configured number of times before succeeding.
type flakyOracle struct {
	failures int
	err      error
	calls    int
}

func (o *flakyOracle) CurrentPrice(ctx context.Context, asset string) (decimal.Decimal, error) {
	o.calls++
	if o.calls <= o.failures {
		return decimal.Zero, o.err
	}
	return decimal.NewFromInt(100), nil
}

func (o *flakyOracle) History(ctx context.Context, asset string, rangeDays int) ([]domain.PricePoint, error) {
	o.calls++
	if o.calls <= o.failures {
		return nil, o.err
	}
	return []domain.PricePoint{{Time: time.Now(), Price: 100}}, nil
}

func newTestRetrier(t *testing.T, next ports.PriceOracle, attempts int) *Retrier {
	t.Helper()
	r, err := NewRetrier(next, RetryConfig{
		MaxAttempts: attempts,
		MinBackoff:  time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
		Logger:      &mockLogger{},
	})
	require.NoError(t, err)
	return r
}

func TestRetrier_RecoversFromTransientFailure(t *testing.T) {
	next := &flakyOracle{failures: 2, err: ports.ErrPriceUnavailable}
	r := newTestRetrier(t, next, 3)

	price, err := r.CurrentPrice(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 3, next.calls)
}

func TestRetrier_GivesUpAfterMaxAttempts(t *testing.T) {
	next := &flakyOracle{failures: 10, err: ports.ErrRateLimited}
	r := newTestRetrier(t, next, 3)

	_, err := r.CurrentPrice(context.Background(), "bitcoin")
	require.ErrorIs(t, err, ports.ErrRateLimited)
	assert.Equal(t, 3, next.calls)
}

func TestRetrier_DoesNotRetryPermanentErrors(t *testing.T) {
	permanent := errors.New("bad symbol")
	next := &flakyOracle{failures: 10, err: permanent}
	r := newTestRetrier(t, next, 3)

	_, err := r.History(context.Background(), "bitcoin", 30)
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, next.calls, "permanent errors must fail immediately")
}

func TestRetrier_StopsOnCancelledContext(t *testing.T) {
	next := &flakyOracle{failures: 10, err: ports.ErrPriceUnavailable}
	r := newTestRetrier(t, next, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.CurrentPrice(ctx, "bitcoin")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, next.calls)
}
