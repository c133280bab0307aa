package domain

// OrderSide represents the side of an order (buy or sell).
type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// IsValid reports whether the side is one of the known values.
func (s OrderSide) IsValid() bool {
	return s == Buy || s == Sell
}

// OrderKind represents how an order is executed.
type OrderKind string

const (
	// Market orders execute immediately at the submitted quote price.
	Market OrderKind = "market"
	// Limit and stop orders are stored pending. No trigger mechanism
	// executes them in this engine; they stay pending until cancelled.
	Limit OrderKind = "limit"
	Stop  OrderKind = "stop"
)

// IsValid reports whether the kind is one of the known values.
func (k OrderKind) IsValid() bool {
	return k == Market || k == Limit || k == Stop
}

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusExecuted  OrderStatus = "executed"
	StatusCancelled OrderStatus = "cancelled"
)

// IsTerminal reports whether the status allows no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusExecuted || s == StatusCancelled
}

// SignalType is a strategy's directional recommendation.
type SignalType string

const (
	SignalBuy  SignalType = "buy"
	SignalSell SignalType = "sell"
	SignalHold SignalType = "hold"
)
