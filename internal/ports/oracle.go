package ports

import (
	"context"

	"papertrade/internal/domain"

	"github.com/shopspring/decimal"
)

// PriceOracle defines the interface for the external price feed.
// Implementations must fail with ErrPriceUnavailable rather than block
// indefinitely, and must never substitute fabricated prices on failure.
type PriceOracle interface {
	// CurrentPrice returns the current reference price for an asset.
	CurrentPrice(ctx context.Context, asset string) (decimal.Decimal, error)
	// History returns the daily price series for the last rangeDays days,
	// ordered oldest first.
	History(ctx context.Context, asset string, rangeDays int) ([]domain.PricePoint, error)
}
