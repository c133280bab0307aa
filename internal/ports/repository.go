package ports

import (
	"context"

	"papertrade/internal/domain"
)

// HoldingRepository defines the interface for storing and retrieving user holdings.
// The store guarantees single-record atomicity per (userID, asset) key.
type HoldingRepository interface {
	// Find retrieves the holding for a user and asset.
	// Returns nil, nil if no holding exists.
	Find(ctx context.Context, userID, asset string) (*domain.Holding, error)
	// Upsert creates or replaces the holding keyed by (userID, asset).
	Upsert(ctx context.Context, holding *domain.Holding) error
	// Delete removes the holding for a user and asset. Deleting a missing
	// holding is not an error.
	Delete(ctx context.Context, userID, asset string) error
	// FindByUser retrieves all holdings for a user, ordered by asset.
	FindByUser(ctx context.Context, userID string) ([]*domain.Holding, error)
}

// OrderRepository defines the interface for storing and retrieving orders.
type OrderRepository interface {
	// CreateOrder persists a new order.
	CreateOrder(ctx context.Context, order *domain.Order) error
	// FindOrder retrieves an order by ID for the given user.
	// Returns nil, nil if no matching order exists.
	FindOrder(ctx context.Context, orderID, userID string) (*domain.Order, error)
	// FindOrdersByUser retrieves a user's orders newest first, narrowed by filter.
	FindOrdersByUser(ctx context.Context, userID string, filter domain.OrderFilter) ([]*domain.Order, error)
	// TransitionStatus atomically moves an order from one status to another.
	// It reports whether the transition was applied; false means the order
	// was not in the expected status (first writer wins).
	TransitionStatus(ctx context.Context, orderID, userID string, from, to domain.OrderStatus) (bool, error)
}

// WatchlistRepository stores the set of assets a user tracks.
type WatchlistRepository interface {
	// ListAssets returns the user's watched assets, ordered by asset.
	ListAssets(ctx context.Context, userID string) ([]string, error)
	// AddAsset adds an asset to the watchlist. Adding a watched asset is a no-op.
	AddAsset(ctx context.Context, userID, asset string) error
	// RemoveAsset removes an asset from the watchlist.
	RemoveAsset(ctx context.Context, userID, asset string) error
	// AllWatchedAssets returns the distinct assets watched by any user.
	AllWatchedAssets(ctx context.Context) ([]string, error)
}

// RiskSettings holds a user's order-placement limits.
type RiskSettings struct {
	UserID             string
	MaxPositionSize    float64 // Maximum notional value of one buy order
	MaxDailyLoss       float64
	StopLossPercentage float64
}

// DefaultRiskSettings are the advisory limits shown to a user who never
// stored any. They are display values only: limits are enforced at order
// placement solely when the user has explicitly stored settings.
func DefaultRiskSettings(userID string) *RiskSettings {
	return &RiskSettings{
		UserID:             userID,
		MaxPositionSize:    1000,
		MaxDailyLoss:       100,
		StopLossPercentage: 5,
	}
}

// RiskSettingsRepository stores per-user risk limits.
type RiskSettingsRepository interface {
	// Get retrieves the user's stored risk settings.
	// Returns nil, nil if the user never stored any.
	Get(ctx context.Context, userID string) (*RiskSettings, error)
	// Put creates or replaces the user's risk settings.
	Put(ctx context.Context, settings *RiskSettings) error
}
