package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order represents a single order placement. Market orders are executed at
// creation time against the position ledger; limit and stop orders are
// persisted pending. Terminal orders (executed, cancelled) are immutable.
type Order struct {
	ID         string
	UserID     string
	Side       OrderSide
	Asset      string
	Amount     decimal.Decimal // Quantity of the asset, > 0
	Price      decimal.Decimal // Quoted price at submission, > 0
	Kind       OrderKind
	StopLoss   *decimal.Decimal // Optional protective levels, informational
	TakeProfit *decimal.Decimal
	StrategyID string // Strategy that originated the order, if any
	Status     OrderStatus
	CreatedAt  time.Time
	// ExecutedPrice is set only for executed orders. The engine treats the
	// submitted quote as the fill price; there is no order book.
	ExecutedPrice *decimal.Decimal
}

// Notional returns amount * price, the order's total value at the quote.
func (o *Order) Notional() decimal.Decimal {
	return o.Amount.Mul(o.Price)
}

// OrderFilter narrows an order history listing. Zero values match everything.
type OrderFilter struct {
	Status OrderStatus
	Side   OrderSide
	Asset  string
	Limit  int // Defaults to 50 when <= 0
}
