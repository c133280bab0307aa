// Package binanceoracle implements ports.PriceOracle over the Binance spot
// REST API. Only public market-data endpoints are used; API keys are
// optional.
package binanceoracle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
)

const (
	baseURLProduction = "https://api.binance.com"
	baseURLTestnet    = "https://testnet.binance.vision"

	// Binance caps a single klines request at 1000 candles.
	maxKlineLimit = 1000
)

// defaultSymbols maps the supported asset identifiers to Binance spot
// symbols quoted in USDT.
var defaultSymbols = map[string]string{
	"bitcoin":     "BTCUSDT",
	"ethereum":    "ETHUSDT",
	"solana":      "SOLUSDT",
	"cardano":     "ADAUSDT",
	"dogecoin":    "DOGEUSDT",
	"binancecoin": "BNBUSDT",
	"polkadot":    "DOTUSDT",
	"tron":        "TRXUSDT",
	"polygon":     "MATICUSDT",
	"litecoin":    "LTCUSDT",
}

// Config holds configuration specific to the Binance oracle adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
	// Symbols overrides the default asset -> spot symbol mapping.
	Symbols map[string]string
}

// Client adapts the Binance spot API to ports.PriceOracle.
type Client struct {
	api     *binance.Client
	logger  ports.Logger
	symbols map[string]string
}

// New creates a new Binance oracle adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance oracle")
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
	} else {
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance oracle configured", map[string]interface{}{"baseURL": client.BaseURL})

	symbols := cfg.Symbols
	if symbols == nil {
		symbols = defaultSymbols
	}

	return &Client{api: client, logger: cfg.Logger, symbols: symbols}, nil
}

// SymbolFor resolves an asset identifier to a Binance spot symbol. Assets
// outside the configured map are assumed to already be symbols, or are
// quoted in USDT.
func (c *Client) SymbolFor(asset string) string {
	if sym, ok := c.symbols[strings.ToLower(asset)]; ok {
		return sym
	}
	upper := strings.ToUpper(asset)
	if strings.HasSuffix(upper, "USDT") {
		return upper
	}
	return upper + "USDT"
}

// CurrentPrice returns the current spot price for an asset.
func (c *Client) CurrentPrice(ctx context.Context, asset string) (decimal.Decimal, error) {
	op := "CurrentPrice"
	symbol := c.SymbolFor(asset)

	prices, err := c.api.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, c.handleError(ctx, err, op, symbol)
	}
	if len(prices) == 0 {
		err := fmt.Errorf("no price data returned for symbol %s: %w", symbol, ports.ErrPriceUnavailable)
		c.logger.Warn(ctx, op+" returned no data", map[string]interface{}{"symbol": symbol})
		return decimal.Zero, err
	}

	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("could not parse price '%s' for %s: %w", prices[0].Price, symbol, err)
	}
	return price, nil
}

// History returns the last rangeDays daily closes for an asset, oldest first.
// The exchange caps a single klines request at maxKlineLimit candles, so
// longer windows are fetched in pages keyed by start time.
func (c *Client) History(ctx context.Context, asset string, rangeDays int) ([]domain.PricePoint, error) {
	op := "History"
	symbol := c.SymbolFor(asset)

	if rangeDays <= 0 {
		rangeDays = 1
	}
	start := time.Now().AddDate(0, 0, -rangeDays)

	points := make([]domain.PricePoint, 0, rangeDays)
	for remaining := rangeDays; remaining > 0; {
		limit := remaining
		if limit > maxKlineLimit {
			limit = maxKlineLimit
		}

		klines, err := c.api.NewKlinesService().
			Symbol(symbol).
			Interval("1d").
			StartTime(start.UnixMilli()).
			Limit(limit).
			Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op, symbol)
		}
		if len(klines) == 0 {
			break
		}

		for _, k := range klines {
			closePrice, err := strconv.ParseFloat(k.Close, 64)
			if err != nil {
				return nil, fmt.Errorf("could not parse close price '%s' for %s: %w", k.Close, symbol, err)
			}
			points = append(points, domain.PricePoint{
				Time:  time.UnixMilli(k.OpenTime),
				Price: closePrice,
			})
		}

		if len(klines) < limit {
			// The exchange has no more candles for this symbol.
			break
		}
		start = time.UnixMilli(klines[len(klines)-1].OpenTime).Add(24 * time.Hour)
		remaining -= len(klines)
	}
	return points, nil
}

// handleError translates Binance API errors into standardized ports errors.
// Every upstream failure surfaces as ErrPriceUnavailable (or ErrRateLimited)
// so callers can retry; prices are never fabricated on failure.
func (c *Client) handleError(ctx context.Context, err error, operation, symbol string) error {
	fields := map[string]interface{}{"operation": operation, "symbol": symbol}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		if apiErr.Code == -1003 {
			c.logger.Warn(ctx, "Binance rate limit exceeded", fields)
			return fmt.Errorf("%s %s: %w", operation, symbol, ports.ErrRateLimited)
		}
	}

	c.logger.Error(ctx, err, "Binance oracle request failed", fields)
	return fmt.Errorf("%s %s: %v: %w", operation, symbol, err, ports.ErrPriceUnavailable)
}
