// Package ledger owns all holding records and applies order fills to them
// under weighted-average-cost rules.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/ports"

	"github.com/shopspring/decimal"
)

// PriceLookup resolves an asset's current price. ports.PriceOracle's
// CurrentPrice method satisfies this signature.
type PriceLookup func(ctx context.Context, asset string) (decimal.Decimal, error)

// Ledger applies buy and sell fills to a user's holdings. Fills for the same
// (user, asset) pair are serialized with a per-key lock so that concurrent
// read-modify-write cycles never interleave.
type Ledger struct {
	repo   ports.HoldingRepository
	logger ports.Logger

	mu    sync.Mutex // guards locks
	locks map[string]*sync.Mutex
}

// New creates a new position ledger.
func New(repo ports.HoldingRepository, logger ports.Logger) (*Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("holding repository is required for ledger")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for ledger")
	}
	return &Ledger{
		repo:   repo,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// lockFor returns the mutex serializing fills for a (user, asset) pair.
func (l *Ledger) lockFor(userID, asset string) *sync.Mutex {
	key := userID + "\x00" + asset
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// ApplyFill applies a fill of quantity at fillPrice to the user's holding in
// asset and returns the resulting holding. A buy creates or blends into the
// holding using the weighted-average-cost rule; a sell decrements quantity
// and leaves the average buy price untouched. A sell that exceeds the held
// quantity fails with ErrInsufficientHoldings and leaves the holding
// unmodified. A holding whose quantity reaches exactly zero is deleted; the
// returned holding then carries the zero quantity.
func (l *Ledger) ApplyFill(ctx context.Context, userID, asset string, side domain.OrderSide, quantity, fillPrice decimal.Decimal) (*domain.Holding, error) {
	if userID == "" || asset == "" {
		return nil, fmt.Errorf("user and asset are required: %w", ports.ErrInvalidOrder)
	}
	if !side.IsValid() {
		return nil, fmt.Errorf("side %q: %w", side, ports.ErrInvalidOrder)
	}
	if quantity.Sign() <= 0 {
		return nil, fmt.Errorf("fill quantity must be positive: %w", ports.ErrInvalidOrder)
	}
	if fillPrice.Sign() <= 0 {
		return nil, fmt.Errorf("fill price must be positive: %w", ports.ErrInvalidOrder)
	}

	lock := l.lockFor(userID, asset)
	lock.Lock()
	defer lock.Unlock()

	holding, err := l.repo.Find(ctx, userID, asset)
	if err != nil {
		return nil, fmt.Errorf("load holding %s/%s: %w", userID, asset, err)
	}

	switch side {
	case domain.Buy:
		holding, err = l.applyBuy(ctx, userID, asset, holding, quantity, fillPrice)
	case domain.Sell:
		holding, err = l.applySell(ctx, userID, asset, holding, quantity)
	}
	if err != nil {
		return nil, err
	}

	l.logger.Debug(ctx, "Fill applied", map[string]interface{}{
		"user":     userID,
		"asset":    asset,
		"side":     side,
		"quantity": quantity,
		"price":    fillPrice,
	})
	return holding, nil
}

func (l *Ledger) applyBuy(ctx context.Context, userID, asset string, holding *domain.Holding, quantity, fillPrice decimal.Decimal) (*domain.Holding, error) {
	now := time.Now()
	if holding == nil {
		holding = &domain.Holding{
			UserID:      userID,
			Asset:       asset,
			Quantity:    quantity,
			AvgBuyPrice: fillPrice,
			LastUpdated: now,
		}
	} else {
		// Weighted-average cost: all purchased units share one blended price.
		totalCost := holding.Quantity.Mul(holding.AvgBuyPrice).Add(quantity.Mul(fillPrice))
		newQuantity := holding.Quantity.Add(quantity)
		holding.AvgBuyPrice = totalCost.Div(newQuantity)
		holding.Quantity = newQuantity
		holding.LastUpdated = now
	}

	if err := l.repo.Upsert(ctx, holding); err != nil {
		return nil, fmt.Errorf("store holding %s/%s: %w", userID, asset, err)
	}
	return holding, nil
}

func (l *Ledger) applySell(ctx context.Context, userID, asset string, holding *domain.Holding, quantity decimal.Decimal) (*domain.Holding, error) {
	if holding == nil || holding.Quantity.LessThan(quantity) {
		return nil, fmt.Errorf("sell %s of %s/%s: %w", quantity, userID, asset, ports.ErrInsufficientHoldings)
	}

	holding.Quantity = holding.Quantity.Sub(quantity)
	holding.LastUpdated = time.Now()

	if holding.Quantity.IsZero() {
		// Zero-quantity holdings are never persisted.
		if err := l.repo.Delete(ctx, userID, asset); err != nil {
			return nil, fmt.Errorf("delete emptied holding %s/%s: %w", userID, asset, err)
		}
		return holding, nil
	}

	if err := l.repo.Upsert(ctx, holding); err != nil {
		return nil, fmt.Errorf("store holding %s/%s: %w", userID, asset, err)
	}
	return holding, nil
}

// RealizedPNL returns the profit realized by selling quantity units at
// fillPrice out of a holding carried at avgBuyPrice. The ledger itself never
// stores realized P&L; callers compute it at fill time.
func RealizedPNL(quantity, fillPrice, avgBuyPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(fillPrice.Sub(avgBuyPrice))
}

// Valuation prices all of the user's holdings through the lookup and returns
// aggregate analytics. Best and worst performers are ranked by P&L percentage
// descending, ties broken by larger current value; both are nil for an empty
// portfolio.
func (l *Ledger) Valuation(ctx context.Context, userID string, price PriceLookup) (*domain.PortfolioValuation, error) {
	holdings, err := l.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load holdings for %s: %w", userID, err)
	}

	valuation := &domain.PortfolioValuation{
		Holdings: make([]*domain.HoldingValuation, 0, len(holdings)),
	}

	for _, h := range holdings {
		current, err := price(ctx, h.Asset)
		if err != nil {
			return nil, fmt.Errorf("price %s: %w", h.Asset, err)
		}

		hv := &domain.HoldingValuation{
			Holding:      *h,
			CurrentPrice: current,
			CurrentValue: h.Quantity.Mul(current),
			CostBasis:    h.CostBasis(),
		}
		hv.PNL = hv.CurrentValue.Sub(hv.CostBasis)
		if hv.CostBasis.Sign() > 0 {
			hv.PNLPercentage = hv.PNL.Div(hv.CostBasis).Mul(decimal.NewFromInt(100))
		}

		valuation.Holdings = append(valuation.Holdings, hv)
		valuation.TotalValue = valuation.TotalValue.Add(hv.CurrentValue)
		valuation.TotalPNL = valuation.TotalPNL.Add(hv.PNL)
	}

	for _, hv := range valuation.Holdings {
		if valuation.BestPerformer == nil || outperforms(hv, valuation.BestPerformer) {
			valuation.BestPerformer = hv
		}
		if valuation.WorstPerformer == nil || outperforms(valuation.WorstPerformer, hv) {
			valuation.WorstPerformer = hv
		}
	}

	return valuation, nil
}

// outperforms reports whether a ranks strictly ahead of b: higher P&L
// percentage first, larger current value on ties.
func outperforms(a, b *domain.HoldingValuation) bool {
	if !a.PNLPercentage.Equal(b.PNLPercentage) {
		return a.PNLPercentage.GreaterThan(b.PNLPercentage)
	}
	return a.CurrentValue.GreaterThan(b.CurrentValue)
}
