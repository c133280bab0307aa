package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/ports"

	"github.com/shopspring/decimal"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const defaultOrderLimit = 50

// Repository implements the holding, order, watchlist and risk-settings
// repositories using SQLite. Monetary values are stored as TEXT and parsed
// back into decimals so that cost-basis math never round-trips through
// floating point.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/papertrade.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, ports.ErrDBConnection)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally, but the Go driver benefits
	// from limiting connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS holdings (
		user_id TEXT NOT NULL,
		asset TEXT NOT NULL,
		quantity TEXT NOT NULL,
		avg_buy_price TEXT NOT NULL,
		last_updated TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, asset)
	);

	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		side TEXT NOT NULL,
		asset TEXT NOT NULL,
		amount TEXT NOT NULL,
		price TEXT NOT NULL,
		kind TEXT NOT NULL,
		stop_loss TEXT DEFAULT NULL,
		take_profit TEXT DEFAULT NULL,
		strategy_id TEXT DEFAULT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		executed_price TEXT DEFAULT NULL
	);

	CREATE TABLE IF NOT EXISTS watchlists (
		user_id TEXT NOT NULL,
		asset TEXT NOT NULL,
		PRIMARY KEY (user_id, asset)
	);

	CREATE TABLE IF NOT EXISTS risk_settings (
		user_id TEXT PRIMARY KEY,
		max_position_size REAL NOT NULL,
		max_daily_loss REAL NOT NULL,
		stop_loss_percentage REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders (user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders (user_id, status);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- HoldingRepository Implementation ---

// Find retrieves the holding for a user and asset.
func (r *Repository) Find(ctx context.Context, userID, asset string) (*domain.Holding, error) {
	const query = `
	SELECT user_id, asset, quantity, avg_buy_price, last_updated
	FROM holdings WHERE user_id = ? AND asset = ?`

	row := r.db.QueryRowContext(ctx, query, userID, asset)
	holding, err := scanHolding(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query holding %s/%s: %w", userID, asset, err)
	}
	return holding, nil
}

// Upsert creates or replaces the holding keyed by (userID, asset).
func (r *Repository) Upsert(ctx context.Context, holding *domain.Holding) error {
	const query = `
	INSERT INTO holdings (user_id, asset, quantity, avg_buy_price, last_updated)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (user_id, asset) DO UPDATE SET
		quantity = excluded.quantity,
		avg_buy_price = excluded.avg_buy_price,
		last_updated = excluded.last_updated`

	_, err := r.db.ExecContext(ctx, query,
		holding.UserID, holding.Asset,
		holding.Quantity.String(), holding.AvgBuyPrice.String(), holding.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to upsert holding %s/%s: %w", holding.UserID, holding.Asset, ports.ErrUpdateFailed)
	}
	r.logger.Debug(ctx, "Holding stored", map[string]interface{}{
		"user": holding.UserID, "asset": holding.Asset, "quantity": holding.Quantity.String(),
	})
	return nil
}

// Delete removes the holding for a user and asset.
func (r *Repository) Delete(ctx context.Context, userID, asset string) error {
	const query = `DELETE FROM holdings WHERE user_id = ? AND asset = ?`
	if _, err := r.db.ExecContext(ctx, query, userID, asset); err != nil {
		return fmt.Errorf("failed to delete holding %s/%s: %w", userID, asset, ports.ErrDeleteFailed)
	}
	r.logger.Debug(ctx, "Holding deleted", map[string]interface{}{"user": userID, "asset": asset})
	return nil
}

// FindByUser retrieves all holdings for a user, ordered by asset.
func (r *Repository) FindByUser(ctx context.Context, userID string) ([]*domain.Holding, error) {
	const query = `
	SELECT user_id, asset, quantity, avg_buy_price, last_updated
	FROM holdings WHERE user_id = ? ORDER BY asset`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings for %s: %w", userID, err)
	}
	defer rows.Close()

	holdings := make([]*domain.Holding, 0)
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding during FindByUser: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding rows: %w", err)
	}
	return holdings, nil
}

// --- OrderRepository Implementation ---

// CreateOrder persists a new order.
func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	const query = `
	INSERT INTO orders (id, user_id, side, asset, amount, price, kind,
	                    stop_loss, take_profit, strategy_id, status, created_at, executed_price)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		order.ID, order.UserID, order.Side, order.Asset,
		order.Amount.String(), order.Price.String(), order.Kind,
		nullDecimal(order.StopLoss), nullDecimal(order.TakeProfit),
		nullString(order.StrategyID), order.Status, order.CreatedAt,
		nullDecimal(order.ExecutedPrice))
	if err != nil {
		return fmt.Errorf("failed to insert order %s: %w", order.ID, err)
	}
	r.logger.Debug(ctx, "Order created", map[string]interface{}{
		"orderID": order.ID, "user": order.UserID, "status": order.Status,
	})
	return nil
}

// FindOrder retrieves an order by ID for the given user.
func (r *Repository) FindOrder(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	const query = `
	SELECT id, user_id, side, asset, amount, price, kind,
	       stop_loss, take_profit, strategy_id, status, created_at, executed_price
	FROM orders WHERE id = ? AND user_id = ?`

	row := r.db.QueryRowContext(ctx, query, orderID, userID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query order %s: %w", orderID, err)
	}
	return order, nil
}

// FindOrdersByUser retrieves a user's orders newest first, narrowed by filter.
func (r *Repository) FindOrdersByUser(ctx context.Context, userID string, filter domain.OrderFilter) ([]*domain.Order, error) {
	query := `
	SELECT id, user_id, side, asset, amount, price, kind,
	       stop_loss, take_profit, strategy_id, status, created_at, executed_price
	FROM orders WHERE user_id = ?`
	args := []interface{}{userID}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Side != "" {
		query += " AND side = ?"
		args = append(args, filter.Side)
	}
	if filter.Asset != "" {
		query += " AND asset = ?"
		args = append(args, filter.Asset)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultOrderLimit
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders for %s: %w", userID, err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order during FindOrdersByUser: %w", err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}
	return orders, nil
}

// TransitionStatus atomically moves an order from one status to another.
// The conditional update makes the transition first-writer-wins: a second
// caller finds the row no longer in the expected status and gets false.
func (r *Repository) TransitionStatus(ctx context.Context, orderID, userID string, from, to domain.OrderStatus) (bool, error) {
	const query = `UPDATE orders SET status = ? WHERE id = ? AND user_id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, query, to, orderID, userID, from)
	if err != nil {
		return false, fmt.Errorf("failed to transition order %s to %s: %w", orderID, to, ports.ErrUpdateFailed)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected for order %s: %w", orderID, err)
	}
	return affected > 0, nil
}

// --- WatchlistRepository Implementation ---

// ListAssets returns the user's watched assets, ordered by asset.
func (r *Repository) ListAssets(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT asset FROM watchlists WHERE user_id = ? ORDER BY asset`
	return r.queryAssets(ctx, query, userID)
}

// AddAsset adds an asset to the watchlist. Adding a watched asset is a no-op.
func (r *Repository) AddAsset(ctx context.Context, userID, asset string) error {
	const query = `INSERT OR IGNORE INTO watchlists (user_id, asset) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, query, userID, asset); err != nil {
		return fmt.Errorf("failed to add %s to watchlist for %s: %w", asset, userID, ports.ErrUpdateFailed)
	}
	return nil
}

// RemoveAsset removes an asset from the watchlist.
func (r *Repository) RemoveAsset(ctx context.Context, userID, asset string) error {
	const query = `DELETE FROM watchlists WHERE user_id = ? AND asset = ?`
	if _, err := r.db.ExecContext(ctx, query, userID, asset); err != nil {
		return fmt.Errorf("failed to remove %s from watchlist for %s: %w", asset, userID, ports.ErrDeleteFailed)
	}
	return nil
}

// AllWatchedAssets returns the distinct assets watched by any user.
func (r *Repository) AllWatchedAssets(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT asset FROM watchlists ORDER BY asset`
	return r.queryAssets(ctx, query)
}

func (r *Repository) queryAssets(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	assets := make([]string, 0)
	for rows.Next() {
		var asset string
		if err := rows.Scan(&asset); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist row: %w", err)
		}
		assets = append(assets, asset)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist rows: %w", err)
	}
	return assets, nil
}

// --- RiskSettingsRepository Implementation ---

// Get retrieves the user's stored risk settings.
func (r *Repository) Get(ctx context.Context, userID string) (*ports.RiskSettings, error) {
	const query = `
	SELECT max_position_size, max_daily_loss, stop_loss_percentage
	FROM risk_settings WHERE user_id = ?`

	settings := &ports.RiskSettings{UserID: userID}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&settings.MaxPositionSize, &settings.MaxDailyLoss, &settings.StopLossPercentage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just never stored
		}
		return nil, fmt.Errorf("failed to query risk settings for %s: %w", userID, err)
	}
	return settings, nil
}

// Put creates or replaces the user's risk settings.
func (r *Repository) Put(ctx context.Context, settings *ports.RiskSettings) error {
	const query = `
	INSERT INTO risk_settings (user_id, max_position_size, max_daily_loss, stop_loss_percentage)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (user_id) DO UPDATE SET
		max_position_size = excluded.max_position_size,
		max_daily_loss = excluded.max_daily_loss,
		stop_loss_percentage = excluded.stop_loss_percentage`

	_, err := r.db.ExecContext(ctx, query,
		settings.UserID, settings.MaxPositionSize, settings.MaxDailyLoss, settings.StopLossPercentage)
	if err != nil {
		return fmt.Errorf("failed to store risk settings for %s: %w", settings.UserID, ports.ErrUpdateFailed)
	}
	return nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanHolding scans a row into a domain.Holding struct.
func scanHolding(s scanner) (*domain.Holding, error) {
	h := &domain.Holding{}
	var quantity, avgBuyPrice string
	err := s.Scan(&h.UserID, &h.Asset, &quantity, &avgBuyPrice, &h.LastUpdated)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	if h.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, fmt.Errorf("parsing stored quantity '%s': %w", quantity, err)
	}
	if h.AvgBuyPrice, err = decimal.NewFromString(avgBuyPrice); err != nil {
		return nil, fmt.Errorf("parsing stored avg buy price '%s': %w", avgBuyPrice, err)
	}
	return h, nil
}

// scanOrder scans a row into a domain.Order struct.
func scanOrder(s scanner) (*domain.Order, error) {
	o := &domain.Order{}
	var amount, price string
	var side, kind, status string
	var stopLoss, takeProfit, strategyID, executedPrice sql.NullString
	err := s.Scan(
		&o.ID, &o.UserID, &side, &o.Asset, &amount, &price, &kind,
		&stopLoss, &takeProfit, &strategyID, &status, &o.CreatedAt, &executedPrice)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}

	o.Side = domain.OrderSide(side)
	o.Kind = domain.OrderKind(kind)
	o.Status = domain.OrderStatus(status)
	if o.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parsing stored amount '%s': %w", amount, err)
	}
	if o.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parsing stored price '%s': %w", price, err)
	}
	if o.StopLoss, err = parseNullDecimal(stopLoss); err != nil {
		return nil, err
	}
	if o.TakeProfit, err = parseNullDecimal(takeProfit); err != nil {
		return nil, err
	}
	if o.ExecutedPrice, err = parseNullDecimal(executedPrice); err != nil {
		return nil, err
	}
	if strategyID.Valid {
		o.StrategyID = strategyID.String
	}
	return o, nil
}

func parseNullDecimal(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, fmt.Errorf("parsing stored decimal '%s': %w", v.String, err)
	}
	return &d, nil
}

func nullDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
