// Package oracle provides decorators that wrap a ports.PriceOracle with
// reliability concerns such as retries.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/ports"

	"github.com/jpillora/backoff"
	"github.com/shopspring/decimal"
)

// RetryConfig controls the retry behaviour of the decorator.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per call, including the
	// first one.
	MaxAttempts int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
	Logger      ports.Logger
}

// Retrier wraps another PriceOracle and retries transient failures with
// jittered exponential backoff. Only ErrPriceUnavailable and ErrRateLimited
// are considered transient; anything else fails immediately.
type Retrier struct {
	next   ports.PriceOracle
	cfg    RetryConfig
	logger ports.Logger
}

// NewRetrier creates a retrying decorator around next.
func NewRetrier(next ports.PriceOracle, cfg RetryConfig) (*Retrier, error) {
	if next == nil {
		return nil, fmt.Errorf("wrapped oracle is required for retrier")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for retrier")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	return &Retrier{next: next, cfg: cfg, logger: cfg.Logger}, nil
}

// CurrentPrice implements ports.PriceOracle.
func (r *Retrier) CurrentPrice(ctx context.Context, asset string) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := r.do(ctx, "CurrentPrice", asset, func() error {
		var err error
		price, err = r.next.CurrentPrice(ctx, asset)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return price, nil
}

// History implements ports.PriceOracle.
func (r *Retrier) History(ctx context.Context, asset string, rangeDays int) ([]domain.PricePoint, error) {
	var points []domain.PricePoint
	err := r.do(ctx, "History", asset, func() error {
		var err error
		points, err = r.next.History(ctx, asset, rangeDays)
		return err
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

func (r *Retrier) do(ctx context.Context, operation, asset string, fn func() error) error {
	b := &backoff.Backoff{
		Min:    r.cfg.MinBackoff,
		Max:    r.cfg.MaxBackoff,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}

		wait := b.Duration()
		r.logger.Warn(ctx, "price oracle call failed, retrying", map[string]interface{}{
			"operation": operation,
			"asset":     asset,
			"attempt":   attempt,
			"backoff":   wait.String(),
			"error":     lastErr.Error(),
		})

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s %s interrupted: %w", operation, asset, ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("%s %s failed after %d attempts: %w", operation, asset, r.cfg.MaxAttempts, lastErr)
}

func isTransient(err error) bool {
	return errors.Is(err, ports.ErrPriceUnavailable) || errors.Is(err, ports.ErrRateLimited)
}
