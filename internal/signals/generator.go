package signals

import (
	"context"
	"fmt"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/ports"
)

const defaultHistoryDays = 200

// Config holds configuration for the signal generator.
type Config struct {
	Oracle ports.PriceOracle
	Logger ports.Logger
	// HistoryDays is how much daily history is fetched for indicator
	// calculations. Must cover the largest strategy period; defaults to 200.
	HistoryDays int
}

// Generator maps (strategy, asset, parameters) to a directional trading
// signal using the indicator library and the injected price oracle.
type Generator struct {
	oracle      ports.PriceOracle
	logger      ports.Logger
	historyDays int
}

// NewGenerator creates a new signal generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("price oracle is required for signal generator")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for signal generator")
	}
	historyDays := cfg.HistoryDays
	if historyDays <= 0 {
		historyDays = defaultHistoryDays
	}
	return &Generator{oracle: cfg.Oracle, logger: cfg.Logger, historyDays: historyDays}, nil
}

// Generate computes the current signal for a strategy and asset.
// The signal's price is the oracle's current reference price; the decision
// is evaluated against the oracle's historical series.
func (g *Generator) Generate(ctx context.Context, strategyID, asset string, params map[string]float64) (*domain.Signal, error) {
	// Resolve the strategy before touching the oracle so an unknown ID
	// fails fast.
	if findAlgorithm(strategyID) == nil {
		return nil, fmt.Errorf("strategy %q: %w", strategyID, ports.ErrUnknownStrategy)
	}

	price, err := g.oracle.CurrentPrice(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("current price for %s: %w", asset, err)
	}

	points, err := g.oracle.History(ctx, asset, g.historyDays)
	if err != nil {
		return nil, fmt.Errorf("price history for %s: %w", asset, err)
	}

	eval, err := Evaluate(ctx, strategyID, params, domain.Prices(points))
	if err != nil {
		return nil, fmt.Errorf("evaluate %s for %s: %w", strategyID, asset, err)
	}

	g.logger.Debug(ctx, "Signal generated", map[string]interface{}{
		"strategy": strategyID,
		"asset":    asset,
		"type":     eval.Type,
		"strength": eval.Strength,
	})

	return &domain.Signal{
		StrategyID: strategyID,
		Asset:      asset,
		Type:       eval.Type,
		Price:      price,
		Strength:   eval.Strength,
		Indicator:  eval.Indicator,
		Timestamp:  time.Now(),
	}, nil
}
