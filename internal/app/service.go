// Package app wires the order engine, ledger, signal generator and backtest
// simulator behind one caller-facing service.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"papertrade/internal/backtest"
	"papertrade/internal/domain"
	"papertrade/internal/engine"
	"papertrade/internal/ledger"
	"papertrade/internal/metrics"
	"papertrade/internal/ports"
	"papertrade/internal/signals"
)

// Config holds the service's dependencies.
type Config struct {
	Engine    *engine.Engine
	Ledger    *ledger.Ledger
	Generator *signals.Generator
	Simulator *backtest.Simulator
	Watchlist ports.WatchlistRepository
	Risk      ports.RiskSettingsRepository
	Oracle    ports.PriceOracle
	Logger    ports.Logger
	Metrics   *metrics.Metrics
	// PollInterval is the cadence of the background price refresh loop.
	// Defaults to one minute.
	PollInterval time.Duration
}

// Service is the single entry point callers use to trade, inspect holdings,
// generate signals and run backtests.
type Service struct {
	engine    *engine.Engine
	ledger    *ledger.Ledger
	generator *signals.Generator
	simulator *backtest.Simulator
	watchlist ports.WatchlistRepository
	risk      ports.RiskSettingsRepository
	oracle    ports.PriceOracle
	logger    ports.Logger
	metrics   *metrics.Metrics
	pollEvery time.Duration
}

// New creates the service, validating that all dependencies are present.
func New(cfg Config) (*Service, error) {
	switch {
	case cfg.Engine == nil:
		return nil, fmt.Errorf("order engine is required")
	case cfg.Ledger == nil:
		return nil, fmt.Errorf("ledger is required")
	case cfg.Generator == nil:
		return nil, fmt.Errorf("signal generator is required")
	case cfg.Simulator == nil:
		return nil, fmt.Errorf("backtest simulator is required")
	case cfg.Watchlist == nil:
		return nil, fmt.Errorf("watchlist repository is required")
	case cfg.Risk == nil:
		return nil, fmt.Errorf("risk settings repository is required")
	case cfg.Oracle == nil:
		return nil, fmt.Errorf("price oracle is required")
	case cfg.Logger == nil:
		return nil, fmt.Errorf("logger is required")
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewUnregistered()
	}
	pollEvery := cfg.PollInterval
	if pollEvery <= 0 {
		pollEvery = time.Minute
	}
	return &Service{
		engine:    cfg.Engine,
		ledger:    cfg.Ledger,
		generator: cfg.Generator,
		simulator: cfg.Simulator,
		watchlist: cfg.Watchlist,
		risk:      cfg.Risk,
		oracle:    cfg.Oracle,
		logger:    cfg.Logger,
		metrics:   m,
		pollEvery: pollEvery,
	}, nil
}

// --- Orders ---

// PlaceOrder submits a new order for the user.
func (s *Service) PlaceOrder(ctx context.Context, spec engine.OrderSpec) (*engine.Receipt, error) {
	return s.engine.PlaceOrder(ctx, spec)
}

// CancelOrder cancels a pending order.
func (s *Service) CancelOrder(ctx context.Context, orderID, userID string) error {
	return s.engine.CancelOrder(ctx, orderID, userID)
}

// ListOrders returns the user's order history, newest first.
func (s *Service) ListOrders(ctx context.Context, userID string, filter domain.OrderFilter) ([]*domain.Order, error) {
	return s.engine.ListOrders(ctx, userID, filter)
}

// --- Portfolio ---

// GetPortfolio values the user's holdings at current oracle prices.
func (s *Service) GetPortfolio(ctx context.Context, userID string) (*domain.PortfolioValuation, error) {
	return s.ledger.Valuation(ctx, userID, s.oracle.CurrentPrice)
}

// --- Signals ---

// ListAlgorithms returns the catalog of available signal strategies.
func (s *Service) ListAlgorithms() []signals.AlgorithmSpec {
	return signals.Algorithms()
}

// GetSignal computes the current signal for one strategy and asset.
func (s *Service) GetSignal(ctx context.Context, strategyID, asset string, params map[string]float64) (*domain.Signal, error) {
	sig, err := s.generator.Generate(ctx, strategyID, asset, params)
	if err != nil {
		return nil, err
	}
	s.metrics.SignalsTotal.WithLabelValues(strategyID, string(sig.Type)).Inc()
	return sig, nil
}

// GetSignals computes signals for every asset on the user's watchlist.
// Assets whose data cannot be fetched are skipped with a warning; an unknown
// strategy fails the whole call.
func (s *Service) GetSignals(ctx context.Context, userID, strategyID string, params map[string]float64) ([]*domain.Signal, error) {
	// Reject unknown strategies before touching the watchlist or oracle.
	if _, err := signals.RequiredDataPoints(strategyID, params); err != nil {
		return nil, err
	}

	assets, err := s.watchlist.ListAssets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("could not load watchlist for user %s: %w", userID, err)
	}

	results := make([]*domain.Signal, 0, len(assets))
	for _, asset := range assets {
		sig, err := s.generator.Generate(ctx, strategyID, asset, params)
		if err != nil {
			s.logger.Warn(ctx, "skipping asset, signal generation failed", map[string]interface{}{
				"userID":   userID,
				"strategy": strategyID,
				"asset":    asset,
				"error":    err.Error(),
			})
			continue
		}
		s.metrics.SignalsTotal.WithLabelValues(strategyID, string(sig.Type)).Inc()
		results = append(results, sig)
	}
	return results, nil
}

// --- Backtesting ---

// RunBacktest replays a strategy over historical prices.
func (s *Service) RunBacktest(ctx context.Context, req backtest.Request) (*domain.BacktestResult, error) {
	return s.simulator.Run(ctx, req)
}

// --- Watchlist ---

// Watchlist returns the user's watched assets.
func (s *Service) Watchlist(ctx context.Context, userID string) ([]string, error) {
	return s.watchlist.ListAssets(ctx, userID)
}

// WatchAsset adds an asset to the user's watchlist. Adding an asset that is
// already watched is a no-op.
func (s *Service) WatchAsset(ctx context.Context, userID, asset string) error {
	asset = strings.ToLower(strings.TrimSpace(asset))
	if asset == "" {
		return fmt.Errorf("asset is required: %w", ports.ErrInvalidOrder)
	}
	return s.watchlist.AddAsset(ctx, userID, asset)
}

// UnwatchAsset removes an asset from the user's watchlist.
func (s *Service) UnwatchAsset(ctx context.Context, userID, asset string) error {
	return s.watchlist.RemoveAsset(ctx, userID, strings.ToLower(strings.TrimSpace(asset)))
}

// --- Risk settings ---

// RiskSettings returns the user's risk limits, falling back to the display
// defaults when none were ever stored.
func (s *Service) RiskSettings(ctx context.Context, userID string) (*ports.RiskSettings, error) {
	settings, err := s.risk.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return ports.DefaultRiskSettings(userID), nil
	}
	return settings, nil
}

// UpdateRiskSettings replaces the user's risk limits.
func (s *Service) UpdateRiskSettings(ctx context.Context, settings *ports.RiskSettings) error {
	if settings == nil || settings.UserID == "" {
		return fmt.Errorf("user ID is required: %w", ports.ErrInvalidOrder)
	}
	if settings.MaxPositionSize <= 0 {
		return fmt.Errorf("max position size must be positive: %w", ports.ErrInvalidOrder)
	}
	if settings.MaxDailyLoss < 0 {
		return fmt.Errorf("max daily loss cannot be negative: %w", ports.ErrInvalidOrder)
	}
	if settings.StopLossPercentage < 0 || settings.StopLossPercentage > 100 {
		return fmt.Errorf("stop loss percentage must be between 0 and 100: %w", ports.ErrInvalidOrder)
	}
	return s.risk.Put(ctx, settings)
}

// --- Background price refresh ---

// Start runs the background price refresh loop until ctx is cancelled.
// Each tick fetches the current price of every watched asset, which keeps
// the price cache warm for portfolio valuations and signal generation.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info(ctx, "price refresh loop starting", map[string]interface{}{"interval": s.pollEvery.String()})

	ticker := time.NewTicker(s.pollEvery)
	defer ticker.Stop()

	// Prime prices once at startup rather than waiting a full interval.
	s.refreshPrices(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "price refresh loop stopping", nil)
			return ctx.Err()
		case <-ticker.C:
			s.refreshPrices(ctx)
		}
	}
}

func (s *Service) refreshPrices(ctx context.Context) {
	assets, err := s.watchlist.AllWatchedAssets(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "could not list watched assets for price refresh", nil)
		return
	}
	for _, asset := range assets {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.oracle.CurrentPrice(ctx, asset); err != nil {
			s.logger.Warn(ctx, "price refresh failed for asset", map[string]interface{}{
				"asset": asset,
				"error": err.Error(),
			})
		}
	}
}
