package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BacktestTrade records one simulated fill inside a backtest run.
type BacktestTrade struct {
	Date     time.Time
	Side     OrderSide
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Value    decimal.Decimal // Quantity * price
}

// BacktestMetrics summarizes the performance of a backtest run.
type BacktestMetrics struct {
	TotalTrades    int
	WinningTrades  int     // Sell trades filled above the sandbox's average cost
	MaxDrawdownPct float64 // Deepest peak-to-trough decline of the equity curve, in percent
	SharpeRatio    float64 // Annualized mean/stddev of daily equity returns
}

// BacktestResult is the outcome of replaying a strategy over a price series.
// It is owned by the caller and never persisted by the engine.
type BacktestResult struct {
	StrategyID     string
	Asset          string
	InitialCapital decimal.Decimal
	FinalValue     decimal.Decimal
	TotalReturnPct decimal.Decimal
	Trades         []BacktestTrade
	Metrics        BacktestMetrics
	EquityCurve    []float64 // One equity sample per simulated day
}
