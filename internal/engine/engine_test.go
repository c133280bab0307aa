package engine

import (
	"context"
	"sync"
	"testing"

	"papertrade/internal/domain"
	"papertrade/internal/ledger"
	"papertrade/internal/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// memOrderRepo is an in-memory OrderRepository.
type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]*domain.Order)}
}

func (r *memOrderRepo) CreateOrder(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *memOrderRepo) FindOrder(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) FindOrdersByUser(ctx context.Context, userID string, filter domain.OrderFilter) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if o.UserID != userID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.Side != "" && o.Side != filter.Side {
			continue
		}
		if filter.Asset != "" && o.Asset != filter.Asset {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memOrderRepo) TransitionStatus(ctx context.Context, orderID, userID string, from, to domain.OrderStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.UserID != userID || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

// memHoldingRepo is an in-memory HoldingRepository.
type memHoldingRepo struct {
	mu       sync.Mutex
	holdings map[string]*domain.Holding
}

func newMemHoldingRepo() *memHoldingRepo {
	return &memHoldingRepo{holdings: make(map[string]*domain.Holding)}
}

func (r *memHoldingRepo) Find(ctx context.Context, userID, asset string) (*domain.Holding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.holdings[userID+"/"+asset]
	if !ok {
		return nil, nil
	}
	cp := *h
	return &cp, nil
}

func (r *memHoldingRepo) Upsert(ctx context.Context, holding *domain.Holding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *holding
	r.holdings[holding.UserID+"/"+holding.Asset] = &cp
	return nil
}

func (r *memHoldingRepo) Delete(ctx context.Context, userID, asset string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.holdings, userID+"/"+asset)
	return nil
}

func (r *memHoldingRepo) FindByUser(ctx context.Context, userID string) ([]*domain.Holding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Holding
	for _, h := range r.holdings {
		if h.UserID == userID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

// memRiskRepo serves stored risk settings; nil until something is stored.
type memRiskRepo struct {
	settings *ports.RiskSettings
}

func (r *memRiskRepo) Get(ctx context.Context, userID string) (*ports.RiskSettings, error) {
	if r.settings == nil {
		return nil, nil
	}
	cp := *r.settings
	cp.UserID = userID
	return &cp, nil
}

func (r *memRiskRepo) Put(ctx context.Context, settings *ports.RiskSettings) error {
	cp := *settings
	r.settings = &cp
	return nil
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func newTestEngine(t *testing.T) (*Engine, *memOrderRepo, *memHoldingRepo, *memRiskRepo) {
	t.Helper()
	orders := newMemOrderRepo()
	holdings := newMemHoldingRepo()

	book, err := ledger.New(holdings, &mockLogger{})
	require.NoError(t, err)

	risk := &memRiskRepo{}
	eng, err := New(Config{
		Orders: orders,
		Ledger: book,
		Risk:   risk,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)
	return eng, orders, holdings, risk
}

func marketBuy(user, asset, amount, price string) OrderSpec {
	return OrderSpec{
		UserID: user,
		Side:   domain.Buy,
		Asset:  asset,
		Amount: d(amount),
		Price:  d(price),
		Kind:   domain.Market,
	}
}

func TestEngine_PlaceOrderValidation(t *testing.T) {
	tests := []struct {
		name string
		spec OrderSpec
	}{
		{"missing user", OrderSpec{Side: domain.Buy, Asset: "bitcoin", Amount: d("1"), Price: d("10"), Kind: domain.Market}},
		{"bad side", OrderSpec{UserID: "u1", Side: "short", Asset: "bitcoin", Amount: d("1"), Price: d("10"), Kind: domain.Market}},
		{"missing asset", OrderSpec{UserID: "u1", Side: domain.Buy, Amount: d("1"), Price: d("10"), Kind: domain.Market}},
		{"zero amount", OrderSpec{UserID: "u1", Side: domain.Buy, Asset: "bitcoin", Amount: d("0"), Price: d("10"), Kind: domain.Market}},
		{"zero price", OrderSpec{UserID: "u1", Side: domain.Buy, Asset: "bitcoin", Amount: d("1"), Price: d("0"), Kind: domain.Market}},
		{"bad kind", OrderSpec{UserID: "u1", Side: domain.Buy, Asset: "bitcoin", Amount: d("1"), Price: d("10"), Kind: "trailing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, orders, _, _ := newTestEngine(t)
			_, err := eng.PlaceOrder(context.Background(), tt.spec)
			require.ErrorIs(t, err, ports.ErrInvalidOrder)
			assert.Empty(t, orders.orders, "rejected order must not be persisted")
		})
	}
}

func TestEngine_MarketBuyExecutesImmediately(t *testing.T) {
	eng, orders, holdings, _ := newTestEngine(t)
	ctx := context.Background()

	receipt, err := eng.PlaceOrder(ctx, marketBuy("u1", "bitcoin", "0.01", "50000"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExecuted, receipt.Status)
	assert.NotEmpty(t, receipt.OrderID)

	order, err := orders.FindOrder(ctx, receipt.OrderID, "u1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, domain.StatusExecuted, order.Status)
	require.NotNil(t, order.ExecutedPrice)
	assert.True(t, order.ExecutedPrice.Equal(d("50000")))

	h, err := holdings.Find(ctx, "u1", "bitcoin")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.True(t, h.Quantity.Equal(d("0.01")))
}

func TestEngine_LimitOrderStaysPending(t *testing.T) {
	eng, orders, holdings, _ := newTestEngine(t)
	ctx := context.Background()

	spec := marketBuy("u1", "bitcoin", "0.01", "45000")
	spec.Kind = domain.Limit

	receipt, err := eng.PlaceOrder(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, receipt.Status)

	order, err := orders.FindOrder(ctx, receipt.OrderID, "u1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Nil(t, order.ExecutedPrice)

	// A pending order must not touch holdings.
	h, err := holdings.Find(ctx, "u1", "bitcoin")
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestEngine_RejectedMarketSellLeavesNoOrder(t *testing.T) {
	eng, orders, _, _ := newTestEngine(t)
	ctx := context.Background()

	spec := marketBuy("u1", "bitcoin", "1", "100")
	spec.Side = domain.Sell

	_, err := eng.PlaceOrder(ctx, spec)
	require.ErrorIs(t, err, ports.ErrInsufficientHoldings)
	assert.Empty(t, orders.orders, "failed fill must leave no order record")
}

func TestEngine_RiskLimitRejectsOversizedBuy(t *testing.T) {
	eng, orders, _, risk := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, risk.Put(ctx, &ports.RiskSettings{
		UserID:             "u1",
		MaxPositionSize:    1000,
		MaxDailyLoss:       100,
		StopLossPercentage: 5,
	}))

	// Notional 2 * 600 = 1200 > MaxPositionSize 1000.
	_, err := eng.PlaceOrder(ctx, marketBuy("u1", "bitcoin", "2", "600"))
	require.ErrorIs(t, err, ports.ErrRiskLimitExceeded)
	assert.Empty(t, orders.orders)

	// Sells are not bound by the position size limit.
	_, err = eng.PlaceOrder(ctx, marketBuy("u1", "bitcoin", "1", "900"))
	require.NoError(t, err)
	sell := marketBuy("u1", "bitcoin", "1", "2000")
	sell.Side = domain.Sell
	_, err = eng.PlaceOrder(ctx, sell)
	require.NoError(t, err)
}

func TestEngine_NoStoredRiskSettingsDoNotLimitBuys(t *testing.T) {
	eng, orders, _, _ := newTestEngine(t)
	ctx := context.Background()

	// A user who never configured limits trades unrestricted: notional
	// 0.01 * 108000 = 1080 would breach the advisory default of 1000.
	receipt, err := eng.PlaceOrder(ctx, marketBuy("u1", "bitcoin", "0.01", "108000"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExecuted, receipt.Status)
	assert.Len(t, orders.orders, 1)
}

func TestEngine_CancelOrder(t *testing.T) {
	eng, orders, _, _ := newTestEngine(t)
	ctx := context.Background()

	spec := marketBuy("u1", "bitcoin", "0.01", "45000")
	spec.Kind = domain.Limit
	receipt, err := eng.PlaceOrder(ctx, spec)
	require.NoError(t, err)

	require.NoError(t, eng.CancelOrder(ctx, receipt.OrderID, "u1"))

	order, err := orders.FindOrder(ctx, receipt.OrderID, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, order.Status)

	// Cancelling again fails: the order already left pending.
	err = eng.CancelOrder(ctx, receipt.OrderID, "u1")
	require.ErrorIs(t, err, ports.ErrInvalidTransition)
}

func TestEngine_CancelExecutedOrderFails(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	receipt, err := eng.PlaceOrder(ctx, marketBuy("u1", "bitcoin", "0.01", "50000"))
	require.NoError(t, err)

	err = eng.CancelOrder(ctx, receipt.OrderID, "u1")
	require.ErrorIs(t, err, ports.ErrInvalidTransition)
}

func TestEngine_CancelUnknownOrderFails(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)

	err := eng.CancelOrder(context.Background(), "no-such-order", "u1")
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestEngine_ListOrdersFilter(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.PlaceOrder(ctx, marketBuy("u1", "bitcoin", "0.01", "50000"))
	require.NoError(t, err)

	limit := marketBuy("u1", "ethereum", "0.1", "3000")
	limit.Kind = domain.Limit
	_, err = eng.PlaceOrder(ctx, limit)
	require.NoError(t, err)

	all, err := eng.ListOrders(ctx, "u1", domain.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := eng.ListOrders(ctx, "u1", domain.OrderFilter{Status: domain.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ethereum", pending[0].Asset)

	other, err := eng.ListOrders(ctx, "u2", domain.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)
}
