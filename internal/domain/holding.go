package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding represents a user's accumulated position in one asset, tracked by
// weighted-average cost. At most one holding exists per (user, asset); a
// holding whose quantity reaches zero is deleted, never stored at zero.
type Holding struct {
	UserID      string
	Asset       string
	Quantity    decimal.Decimal // Always > 0 for a persisted holding
	AvgBuyPrice decimal.Decimal // Blended cost of all units; unchanged by sells
	LastUpdated time.Time
}

// CostBasis returns quantity * avgBuyPrice.
func (h *Holding) CostBasis() decimal.Decimal {
	return h.Quantity.Mul(h.AvgBuyPrice)
}

// HoldingValuation is a holding enriched with a current market price.
type HoldingValuation struct {
	Holding
	CurrentPrice  decimal.Decimal
	CurrentValue  decimal.Decimal
	CostBasis     decimal.Decimal
	PNL           decimal.Decimal
	PNLPercentage decimal.Decimal
}

// PortfolioValuation aggregates the valuations of all of a user's holdings.
// BestPerformer and WorstPerformer are nil for an empty portfolio.
type PortfolioValuation struct {
	Holdings       []*HoldingValuation
	TotalValue     decimal.Decimal
	TotalPNL       decimal.Decimal
	BestPerformer  *HoldingValuation
	WorstPerformer *HoldingValuation
}
