package main

import (
	"context"
	"errors"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"papertrade/config"
	"papertrade/internal/adapters/binanceoracle"
	"papertrade/internal/adapters/logger"
	"papertrade/internal/adapters/pricecache"
	"papertrade/internal/adapters/sqlite"
	"papertrade/internal/app"
	"papertrade/internal/backtest"
	"papertrade/internal/engine"
	"papertrade/internal/ledger"
	"papertrade/internal/metrics"
	"papertrade/internal/oracle"
	"papertrade/internal/ports"
	"papertrade/internal/signals"

	"github.com/shopspring/decimal"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Metrics
	registry := prometheus.NewRegistry()
	appMetrics := metrics.New(registry)
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLogger.Error(context.Background(), err, "metrics endpoint stopped")
			}
		}()
		appLogger.Info(context.Background(), "Metrics endpoint started", map[string]interface{}{"addr": cfg.MetricsAddr})
	}

	// 4. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err) // Also log to stderr
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()
	appLogger.Info(context.Background(), "Database repository initialized")

	// 5. Initialize Price Oracle (Binance + retries + Redis cache)
	binanceOracle, err := binanceoracle.New(binanceoracle.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance oracle")
		log.Fatalf("FATAL: Failed to initialize Binance oracle: %v", err)
	}

	var priceOracle ports.PriceOracle
	priceOracle, err = oracle.NewRetrier(binanceOracle, oracle.RetryConfig{
		MaxAttempts: cfg.OracleRetries,
		MinBackoff:  cfg.OracleMinDelay,
		MaxBackoff:  cfg.OracleMaxDelay,
		Logger:      appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize oracle retrier")
		log.Fatalf("FATAL: Failed to initialize oracle retrier: %v", err)
	}

	if !cfg.PriceCacheOff {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		priceOracle, err = pricecache.New(priceOracle, pricecache.Config{
			Client:  rdb,
			TTL:     cfg.PriceCacheTTL,
			Logger:  appLogger,
			Metrics: appMetrics,
		})
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to initialize price cache")
			log.Fatalf("FATAL: Failed to initialize price cache: %v", err)
		}
	}
	appLogger.Info(context.Background(), "Price oracle initialized", map[string]interface{}{"cacheEnabled": !cfg.PriceCacheOff})

	// 6. Initialize Ledger and Order Engine
	book, err := ledger.New(repo, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize ledger")
		log.Fatalf("FATAL: Failed to initialize ledger: %v", err)
	}

	orderEngine, err := engine.New(engine.Config{
		Orders:  repo,
		Ledger:  book,
		Risk:    repo,
		Logger:  appLogger,
		Metrics: appMetrics,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize order engine")
		log.Fatalf("FATAL: Failed to initialize order engine: %v", err)
	}

	// 7. Initialize Signal Generator and Backtest Simulator
	generator, err := signals.NewGenerator(signals.Config{
		Oracle:      priceOracle,
		Logger:      appLogger,
		HistoryDays: cfg.HistoryDays,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize signal generator")
		log.Fatalf("FATAL: Failed to initialize signal generator: %v", err)
	}

	simulator, err := backtest.New(backtest.Config{
		Oracle:            priceOracle,
		Logger:            appLogger,
		Metrics:           appMetrics,
		MaxPerTrade:       decimal.NewFromFloat(cfg.BacktestMaxSpendPerBuy),
		MaxSharesPerTrade: decimal.NewFromFloat(cfg.BacktestMaxSharesPerSell),
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize backtest simulator")
		log.Fatalf("FATAL: Failed to initialize backtest simulator: %v", err)
	}

	// 8. Initialize Application Service
	service, err := app.New(app.Config{
		Engine:       orderEngine,
		Ledger:       book,
		Generator:    generator,
		Simulator:    simulator,
		Watchlist:    repo,
		Risk:         repo,
		Oracle:       priceOracle,
		Logger:       appLogger,
		Metrics:      appMetrics,
		PollInterval: cfg.PollInterval,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize service")
		log.Fatalf("FATAL: Failed to initialize service: %v", err)
	}
	appLogger.Info(context.Background(), "Service initialized")

	// 9. Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := service.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error(context.Background(), err, "Service exited with error")
		log.Fatalf("FATAL: Service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
