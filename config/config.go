package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"papertrade/internal/adapters/logger"
)

// Config holds all application configuration.
type Config struct {
	// Binance market data API (public endpoints; keys are optional)
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Price data
	HistoryDays     int           // daily candles fetched for signal evaluation
	PollInterval    time.Duration // background price refresh cadence
	PriceCacheTTL   time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	PriceCacheOff   bool // disable the Redis cache entirely
	OracleRetries   int
	OracleMinDelay  time.Duration
	OracleMaxDelay  time.Duration

	// Backtesting
	BacktestMaxSpendPerBuy   float64 // capital cap per simulated buy
	BacktestMaxSharesPerSell float64 // share cap per simulated sell

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel

	// Metrics
	MetricsAddr string // empty disables the Prometheus endpoint
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false)

	// Price data
	cfg.HistoryDays = getEnvAsInt("HISTORY_DAYS", 200)
	if cfg.HistoryDays <= 0 {
		errs = append(errs, "HISTORY_DAYS must be positive")
	}

	pollSeconds := getEnvAsInt("PRICE_POLL_SECONDS", 60)
	if pollSeconds <= 0 {
		errs = append(errs, "PRICE_POLL_SECONDS must be positive")
	}
	cfg.PollInterval = time.Duration(pollSeconds) * time.Second

	cacheTTLSeconds := getEnvAsInt("PRICE_CACHE_TTL_SECONDS", 30)
	if cacheTTLSeconds <= 0 {
		errs = append(errs, "PRICE_CACHE_TTL_SECONDS must be positive")
	}
	cfg.PriceCacheTTL = time.Duration(cacheTTLSeconds) * time.Second

	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvAsInt("REDIS_DB", 0)
	cfg.PriceCacheOff = getEnvAsBool("PRICE_CACHE_DISABLED", false)

	cfg.OracleRetries = getEnvAsInt("ORACLE_MAX_ATTEMPTS", 3)
	if cfg.OracleRetries <= 0 {
		errs = append(errs, "ORACLE_MAX_ATTEMPTS must be positive")
	}
	cfg.OracleMinDelay = time.Duration(getEnvAsInt("ORACLE_MIN_BACKOFF_MS", 200)) * time.Millisecond
	cfg.OracleMaxDelay = time.Duration(getEnvAsInt("ORACLE_MAX_BACKOFF_MS", 5000)) * time.Millisecond
	if cfg.OracleMinDelay <= 0 || cfg.OracleMaxDelay < cfg.OracleMinDelay {
		errs = append(errs, "oracle backoff bounds must be positive with min <= max")
	}

	// Backtesting
	var err error
	cfg.BacktestMaxSpendPerBuy, err = getEnvAsFloatRequired("BACKTEST_MAX_SPEND_PER_BUY", 1000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BACKTEST_MAX_SPEND_PER_BUY: %v", err))
	} else if cfg.BacktestMaxSpendPerBuy <= 0 {
		errs = append(errs, "BACKTEST_MAX_SPEND_PER_BUY must be positive")
	}

	cfg.BacktestMaxSharesPerSell, err = getEnvAsFloatRequired("BACKTEST_MAX_SHARES_PER_SELL", 10.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BACKTEST_MAX_SHARES_PER_SELL: %v", err))
	} else if cfg.BacktestMaxSharesPerSell <= 0 {
		errs = append(errs, "BACKTEST_MAX_SHARES_PER_SELL must be positive")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/papertrade.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr)

	// Metrics
	cfg.MetricsAddr = getEnv("METRICS_ADDR", ":9101")

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
