package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"papertrade/config"
	"papertrade/internal/adapters/binanceoracle"
	"papertrade/internal/adapters/logger"
	"papertrade/internal/backtest"
	"papertrade/internal/oracle"
	"papertrade/internal/signals"
	"papertrade/internal/utils"

	"github.com/shopspring/decimal"
)

func main() {
	strategyID := flag.String("strategy", signals.StrategySMACrossover, "strategy ID (see -list)")
	asset := flag.String("asset", "bitcoin", "asset to backtest")
	days := flag.Int("days", 180, "length of the backtest window in days, ending today")
	capital := flag.Float64("capital", 10000, "initial capital")
	paramsFlag := flag.String("params", "", "comma-separated strategy parameters, e.g. shortPeriod=5,longPeriod=20")
	tradesCSV := flag.String("trades-csv", "", "write executed trades to this CSV file")
	equityCSV := flag.String("equity-csv", "", "write the daily equity curve to this CSV file")
	list := flag.Bool("list", false, "list available strategies and exit")
	flag.Parse()

	if *list {
		for _, algo := range signals.Algorithms() {
			fmt.Printf("%s\t%s\n", algo.ID, algo.Name)
			for _, p := range algo.Parameters {
				fmt.Printf("\t%s (default %v, range %v-%v)\n", p.Name, p.Default, p.Min, p.Max)
			}
		}
		return
	}

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	params, err := parseParams(*paramsFlag)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	// 2. Build the price oracle. The runner talks to Binance directly with
	// retries; no Redis cache is needed for a one-shot tool.
	binanceOracle, err := binanceoracle.New(binanceoracle.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Binance oracle: %v", err)
	}

	priceOracle, err := oracle.NewRetrier(binanceOracle, oracle.RetryConfig{
		MaxAttempts: cfg.OracleRetries,
		MinBackoff:  cfg.OracleMinDelay,
		MaxBackoff:  cfg.OracleMaxDelay,
		Logger:      appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize oracle retrier: %v", err)
	}

	// 3. Run the backtest
	simulator, err := backtest.New(backtest.Config{
		Oracle:            priceOracle,
		Logger:            appLogger,
		MaxPerTrade:       decimal.NewFromFloat(cfg.BacktestMaxSpendPerBuy),
		MaxSharesPerTrade: decimal.NewFromFloat(cfg.BacktestMaxSharesPerSell),
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize backtest simulator: %v", err)
	}

	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -*days)

	result, err := simulator.Run(ctx, backtest.Request{
		StrategyID:     *strategyID,
		Asset:          *asset,
		Params:         params,
		StartDate:      start,
		EndDate:        end,
		InitialCapital: decimal.NewFromFloat(*capital),
	})
	if err != nil {
		log.Fatalf("FATAL: Backtest failed: %v", err)
	}

	// 4. Report
	fmt.Printf("Strategy:        %s\n", result.StrategyID)
	fmt.Printf("Asset:           %s\n", result.Asset)
	fmt.Printf("Window:          %s to %s\n", start.Format("2006-01-02"), end.Format("2006-01-02"))
	fmt.Printf("Initial capital: %s\n", result.InitialCapital.StringFixed(2))
	fmt.Printf("Final value:     %s\n", result.FinalValue.StringFixed(2))
	fmt.Printf("Total return:    %s%%\n", result.TotalReturnPct.StringFixed(2))
	fmt.Printf("Trades:          %d (%d winning)\n", result.Metrics.TotalTrades, result.Metrics.WinningTrades)
	fmt.Printf("Max drawdown:    %.2f%%\n", result.Metrics.MaxDrawdownPct)
	fmt.Printf("Sharpe ratio:    %.2f\n", result.Metrics.SharpeRatio)

	if *tradesCSV != "" {
		if err := utils.WriteBacktestTradesToCSV(result.Trades, *tradesCSV); err != nil {
			log.Fatalf("FATAL: Failed to write trades CSV: %v", err)
		}
		fmt.Printf("Trades written to %s\n", *tradesCSV)
	}
	if *equityCSV != "" {
		if err := utils.WriteEquityCurveToCSV(result.EquityCurve, *equityCSV); err != nil {
			log.Fatalf("FATAL: Failed to write equity CSV: %v", err)
		}
		fmt.Printf("Equity curve written to %s\n", *equityCSV)
	}
}

func parseParams(raw string) (map[string]float64, error) {
	params := make(map[string]float64)
	if strings.TrimSpace(raw) == "" {
		return params, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid parameter %q, expected name=value", pair)
		}
		value, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for parameter %s: %w", parts[0], err)
		}
		params[parts[0]] = value
	}
	return params, nil
}
