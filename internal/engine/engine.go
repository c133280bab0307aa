// Package engine owns the order lifecycle: validation, immediate execution
// of market orders against the position ledger, queueing of limit and stop
// orders, and cancellation.
package engine

import (
	"context"
	"fmt"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/ledger"
	"papertrade/internal/metrics"
	"papertrade/internal/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderSpec is a request to place an order.
type OrderSpec struct {
	UserID     string
	Side       domain.OrderSide
	Asset      string
	Amount     decimal.Decimal
	Price      decimal.Decimal
	Kind       domain.OrderKind
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
	StrategyID string
}

// Receipt is returned to the caller after a successful placement.
type Receipt struct {
	OrderID string
	Status  domain.OrderStatus
}

// Config holds the order engine's dependencies.
type Config struct {
	Orders  ports.OrderRepository
	Ledger  *ledger.Ledger
	Risk    ports.RiskSettingsRepository
	Logger  ports.Logger
	Metrics *metrics.Metrics
}

// Engine implements order placement, cancellation and history listing.
type Engine struct {
	orders  ports.OrderRepository
	ledger  *ledger.Ledger
	risk    ports.RiskSettingsRepository
	logger  ports.Logger
	metrics *metrics.Metrics
}

// New creates a new order engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Orders == nil || cfg.Ledger == nil || cfg.Risk == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for order engine")
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &Engine{
		orders:  cfg.Orders,
		ledger:  cfg.Ledger,
		risk:    cfg.Risk,
		logger:  cfg.Logger,
		metrics: m,
	}, nil
}

// PlaceOrder validates the request and either executes it immediately (market
// orders) or persists it pending (limit and stop orders). A market order
// whose fill is rejected by the ledger leaves no order record behind.
func (e *Engine) PlaceOrder(ctx context.Context, spec OrderSpec) (*Receipt, error) {
	if err := validateSpec(spec); err != nil {
		e.metrics.OrdersRejected.Inc()
		return nil, err
	}
	if err := e.checkRiskLimits(ctx, spec); err != nil {
		e.metrics.OrdersRejected.Inc()
		return nil, err
	}

	order := &domain.Order{
		ID:         uuid.NewString(),
		UserID:     spec.UserID,
		Side:       spec.Side,
		Asset:      spec.Asset,
		Amount:     spec.Amount,
		Price:      spec.Price,
		Kind:       spec.Kind,
		StopLoss:   spec.StopLoss,
		TakeProfit: spec.TakeProfit,
		StrategyID: spec.StrategyID,
		Status:     domain.StatusPending,
		CreatedAt:  time.Now(),
	}

	if spec.Kind == domain.Market {
		// The submitted quote is the fill price; there is no order book.
		// The fill is applied before the order is persisted so a rejected
		// sell cannot leave a phantom executed order.
		if _, err := e.ledger.ApplyFill(ctx, spec.UserID, spec.Asset, spec.Side, spec.Amount, spec.Price); err != nil {
			e.metrics.OrdersRejected.Inc()
			return nil, fmt.Errorf("execute market order: %w", err)
		}
		e.metrics.FillsApplied.WithLabelValues(string(spec.Side)).Inc()

		executed := spec.Price
		order.Status = domain.StatusExecuted
		order.ExecutedPrice = &executed
	}

	if err := e.orders.CreateOrder(ctx, order); err != nil {
		if order.Status == domain.StatusExecuted {
			// The fill is already on the books; surface this loudly rather
			// than silently dropping the order record.
			e.logger.Error(ctx, err, "Executed order could not be persisted", map[string]interface{}{
				"orderID": order.ID,
				"user":    order.UserID,
				"asset":   order.Asset,
			})
		}
		return nil, fmt.Errorf("persist order: %w", err)
	}

	e.metrics.OrdersPlaced.WithLabelValues(string(order.Kind)).Inc()
	if order.Status == domain.StatusExecuted {
		e.metrics.OrdersExecuted.Inc()
	}

	e.logger.Info(ctx, "Order placed", map[string]interface{}{
		"orderID": order.ID,
		"user":    order.UserID,
		"asset":   order.Asset,
		"side":    order.Side,
		"kind":    order.Kind,
		"status":  order.Status,
	})
	return &Receipt{OrderID: order.ID, Status: order.Status}, nil
}

// CancelOrder transitions a pending order to cancelled. Only the
// pending -> cancelled transition is legal; cancelling a terminal order
// fails with ErrInvalidTransition, an unknown order with ErrNotFound.
func (e *Engine) CancelOrder(ctx context.Context, orderID, userID string) error {
	applied, err := e.orders.TransitionStatus(ctx, orderID, userID, domain.StatusPending, domain.StatusCancelled)
	if err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	if !applied {
		// Distinguish a missing order from one that already left pending.
		order, err := e.orders.FindOrder(ctx, orderID, userID)
		if err != nil {
			return fmt.Errorf("cancel order %s: %w", orderID, err)
		}
		if order == nil {
			return fmt.Errorf("order %s: %w", orderID, ports.ErrNotFound)
		}
		return fmt.Errorf("order %s is %s: %w", orderID, order.Status, ports.ErrInvalidTransition)
	}

	e.metrics.OrdersCancelled.Inc()
	e.logger.Info(ctx, "Order cancelled", map[string]interface{}{"orderID": orderID, "user": userID})
	return nil
}

// ListOrders returns the user's order history, newest first.
func (e *Engine) ListOrders(ctx context.Context, userID string, filter domain.OrderFilter) ([]*domain.Order, error) {
	orders, err := e.orders.FindOrdersByUser(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders for %s: %w", userID, err)
	}
	return orders, nil
}

func validateSpec(spec OrderSpec) error {
	switch {
	case spec.UserID == "":
		return fmt.Errorf("user is required: %w", ports.ErrInvalidOrder)
	case !spec.Side.IsValid():
		return fmt.Errorf("side %q: %w", spec.Side, ports.ErrInvalidOrder)
	case spec.Asset == "":
		return fmt.Errorf("asset is required: %w", ports.ErrInvalidOrder)
	case spec.Amount.Sign() <= 0:
		return fmt.Errorf("amount must be positive: %w", ports.ErrInvalidOrder)
	case spec.Price.Sign() <= 0:
		return fmt.Errorf("price must be positive: %w", ports.ErrInvalidOrder)
	case !spec.Kind.IsValid():
		return fmt.Errorf("order kind %q: %w", spec.Kind, ports.ErrInvalidOrder)
	}
	return nil
}

// checkRiskLimits rejects buys whose notional exceeds the user's configured
// maximum position size. Limits apply only to users who explicitly stored
// settings; an unconfigured user trades unrestricted.
func (e *Engine) checkRiskLimits(ctx context.Context, spec OrderSpec) error {
	if spec.Side != domain.Buy {
		return nil
	}
	settings, err := e.risk.Get(ctx, spec.UserID)
	if err != nil {
		return fmt.Errorf("load risk settings for %s: %w", spec.UserID, err)
	}
	if settings == nil || settings.MaxPositionSize <= 0 {
		return nil
	}
	notional := spec.Amount.Mul(spec.Price)
	if notional.GreaterThan(decimal.NewFromFloat(settings.MaxPositionSize)) {
		return fmt.Errorf("notional %s exceeds max position size %.2f: %w",
			notional, settings.MaxPositionSize, ports.ErrRiskLimitExceeded)
	}
	return nil
}
