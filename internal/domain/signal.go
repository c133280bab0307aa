package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Signal is a strategy's directional recommendation for an asset at a point
// in time. Signals are derived data: computed on demand, never persisted.
type Signal struct {
	StrategyID string
	Asset      string
	Type       SignalType
	Price      decimal.Decimal
	Strength   float64 // Confidence in [0, 1]
	Indicator  string  // Human-readable indicator reading, e.g. "RSI(14): 27.31"
	Timestamp  time.Time
}
