// Package backtest replays a strategy's signals over a historical price
// series, driving a private cash/shares sandbox, and reports performance
// metrics computed from the simulated equity curve.
package backtest

import (
	"context"
	"fmt"
	"math"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/metrics"
	"papertrade/internal/ports"
	"papertrade/internal/signals"

	"github.com/shopspring/decimal"
)

const (
	// defaultMaxPerTrade caps the cash spent on a single simulated buy.
	defaultMaxPerTrade = 1000
	// defaultMaxSharesPerTrade caps the shares sold in a single simulated sell.
	defaultMaxSharesPerTrade = 10
	// tradingDaysPerYear annualizes the Sharpe ratio. Crypto markets trade
	// every day of the year.
	tradingDaysPerYear = 365
)

// Request describes one backtest run.
type Request struct {
	StrategyID     string
	Asset          string
	Params         map[string]float64
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital decimal.Decimal
}

// Config holds the simulator's dependencies and trade caps.
type Config struct {
	Oracle  ports.PriceOracle
	Logger  ports.Logger
	Metrics *metrics.Metrics
	// MaxPerTrade overrides the cash cap per simulated buy (default 1000).
	MaxPerTrade decimal.Decimal
	// MaxSharesPerTrade overrides the share cap per simulated sell (default 10).
	MaxSharesPerTrade decimal.Decimal
}

// Simulator replays strategy decisions over a daily price series.
type Simulator struct {
	oracle    ports.PriceOracle
	logger    ports.Logger
	metrics   *metrics.Metrics
	maxSpend  decimal.Decimal
	maxShares decimal.Decimal
}

// New creates a new backtest simulator.
func New(cfg Config) (*Simulator, error) {
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("price oracle is required for backtest simulator")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for backtest simulator")
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewUnregistered()
	}
	maxSpend := cfg.MaxPerTrade
	if maxSpend.Sign() <= 0 {
		maxSpend = decimal.NewFromInt(defaultMaxPerTrade)
	}
	maxShares := cfg.MaxSharesPerTrade
	if maxShares.Sign() <= 0 {
		maxShares = decimal.NewFromInt(defaultMaxSharesPerTrade)
	}
	return &Simulator{
		oracle:    cfg.Oracle,
		logger:    cfg.Logger,
		metrics:   m,
		maxSpend:  maxSpend,
		maxShares: maxShares,
	}, nil
}

// Run replays the strategy over [StartDate, EndDate], one step per day.
// The run is fully deterministic: identical inputs produce an identical
// result. Holdings outside the sandbox are never touched.
func (s *Simulator) Run(ctx context.Context, req Request) (*domain.BacktestResult, error) {
	started := time.Now()
	defer func() {
		s.metrics.BacktestDur.Observe(time.Since(started).Seconds())
	}()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	warmup, err := signals.RequiredDataPoints(req.StrategyID, req.Params)
	if err != nil {
		return nil, err
	}

	// Fetch enough history to cover the simulated window plus the
	// indicator warmup before its first day.
	rangeDays := int(time.Since(req.StartDate).Hours()/24) + warmup + 1
	points, err := s.oracle.History(ctx, req.Asset, rangeDays)
	if err != nil {
		return nil, fmt.Errorf("price history for %s: %w", req.Asset, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no price history for %s: %w", req.Asset, ports.ErrPriceUnavailable)
	}
	// An oracle serving fewer candles than requested would silently shrink
	// the simulated window; refuse to report on a partial window.
	if earliest := points[0].Time; earliest.After(req.StartDate.Add(24 * time.Hour)) {
		return nil, fmt.Errorf("history for %s starts %s, after requested start %s: %w",
			req.Asset, earliest.Format("2006-01-02"), req.StartDate.Format("2006-01-02"),
			ports.ErrPriceUnavailable)
	}

	series := domain.Prices(points)
	sandbox := newSandbox(req.InitialCapital)

	for i, point := range points {
		if point.Time.Before(req.StartDate) || point.Time.After(req.EndDate) {
			continue
		}
		if i+1 < warmup {
			// Not enough lead-in for the indicators yet; no decision is
			// defined, so the day is a hold.
			sandbox.sampleEquity(point.Price)
			continue
		}

		eval, err := signals.Evaluate(ctx, req.StrategyID, req.Params, series[:i+1])
		if err != nil {
			return nil, fmt.Errorf("evaluate %s on %s: %w", req.StrategyID, point.Time.Format("2006-01-02"), err)
		}

		price := decimal.NewFromFloat(point.Price)
		switch eval.Type {
		case domain.SignalBuy:
			sandbox.buy(point.Time, price, s.maxSpend)
		case domain.SignalSell:
			sandbox.sell(point.Time, price, s.maxShares)
		}
		sandbox.sampleEquity(point.Price)
	}

	if len(sandbox.equity) == 0 {
		return nil, fmt.Errorf("no price data within backtest window for %s: %w", req.Asset, ports.ErrPriceUnavailable)
	}

	result := sandbox.result(req)
	s.logger.Info(ctx, "Backtest complete", map[string]interface{}{
		"strategy":    req.StrategyID,
		"asset":       req.Asset,
		"days":        len(sandbox.equity),
		"trades":      result.Metrics.TotalTrades,
		"returnPct":   result.TotalReturnPct,
		"maxDrawdown": result.Metrics.MaxDrawdownPct,
	})
	return result, nil
}

func validateRequest(req Request) error {
	switch {
	case req.StrategyID == "":
		return fmt.Errorf("strategy is required: %w", ports.ErrUnknownStrategy)
	case req.Asset == "":
		return fmt.Errorf("asset is required: %w", ports.ErrInvalidOrder)
	case req.StartDate.IsZero() || req.EndDate.IsZero():
		return fmt.Errorf("start and end dates are required: %w", ports.ErrInvalidOrder)
	case req.EndDate.Before(req.StartDate):
		return fmt.Errorf("end date precedes start date: %w", ports.ErrInvalidOrder)
	case req.InitialCapital.Sign() <= 0:
		return fmt.Errorf("initial capital must be positive: %w", ports.ErrInvalidOrder)
	}
	return nil
}

// sandbox is the simulator's private cash/shares accounting. It mirrors the
// ledger's weighted-average-cost rule so that winning trades can be judged
// against the true average cost at the moment of sale.
type sandbox struct {
	cash     decimal.Decimal
	shares   decimal.Decimal
	avgCost  decimal.Decimal
	trades   []domain.BacktestTrade
	winning  int
	equity   []float64
	lastSeen decimal.Decimal
}

func newSandbox(initialCapital decimal.Decimal) *sandbox {
	return &sandbox{cash: initialCapital}
}

func (b *sandbox) buy(date time.Time, price, maxSpend decimal.Decimal) {
	if b.cash.Sign() <= 0 {
		return
	}
	spend := decimal.Min(b.cash, maxSpend)
	quantity := spend.Div(price)

	// Weighted-average cost across the sandbox position.
	totalCost := b.shares.Mul(b.avgCost).Add(spend)
	b.shares = b.shares.Add(quantity)
	b.avgCost = totalCost.Div(b.shares)
	b.cash = b.cash.Sub(spend)

	b.trades = append(b.trades, domain.BacktestTrade{
		Date:     date,
		Side:     domain.Buy,
		Price:    price,
		Quantity: quantity,
		Value:    spend,
	})
}

func (b *sandbox) sell(date time.Time, price, maxShares decimal.Decimal) {
	if b.shares.Sign() <= 0 {
		return
	}
	quantity := decimal.Min(b.shares, maxShares)
	proceeds := quantity.Mul(price)

	// A sell above the current average cost realizes a profit.
	if price.GreaterThan(b.avgCost) {
		b.winning++
	}

	b.shares = b.shares.Sub(quantity)
	b.cash = b.cash.Add(proceeds)
	if b.shares.IsZero() {
		b.avgCost = decimal.Zero
	}

	b.trades = append(b.trades, domain.BacktestTrade{
		Date:     date,
		Side:     domain.Sell,
		Price:    price,
		Quantity: quantity,
		Value:    proceeds,
	})
}

func (b *sandbox) sampleEquity(price float64) {
	b.lastSeen = decimal.NewFromFloat(price)
	equity := b.cash.Add(b.shares.Mul(b.lastSeen))
	b.equity = append(b.equity, equity.InexactFloat64())
}

func (b *sandbox) result(req Request) *domain.BacktestResult {
	finalValue := b.cash.Add(b.shares.Mul(b.lastSeen))
	totalReturn := finalValue.Sub(req.InitialCapital).
		Div(req.InitialCapital).
		Mul(decimal.NewFromInt(100))

	return &domain.BacktestResult{
		StrategyID:     req.StrategyID,
		Asset:          req.Asset,
		InitialCapital: req.InitialCapital,
		FinalValue:     finalValue,
		TotalReturnPct: totalReturn,
		Trades:         b.trades,
		EquityCurve:    b.equity,
		Metrics: domain.BacktestMetrics{
			TotalTrades:    len(b.trades),
			WinningTrades:  b.winning,
			MaxDrawdownPct: maxDrawdownPct(b.equity),
			SharpeRatio:    sharpeRatio(b.equity),
		},
	}
}

// maxDrawdownPct returns the deepest peak-to-trough decline of the equity
// curve, in percent.
func maxDrawdownPct(equity []float64) float64 {
	var peak, maxDD float64
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			dd := (peak - e) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpeRatio computes the annualized Sharpe ratio of the equity curve's
// daily returns, assuming a zero risk-free rate.
func sharpeRatio(equity []float64) float64 {
	if len(equity) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			continue
		}
		returns = append(returns, equity[i]/equity[i-1]-1)
	}
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return 0
	}

	return mean / stdDev * math.Sqrt(tradingDaysPerYear)
}
