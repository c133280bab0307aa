// Package metrics exposes Prometheus instrumentation for the trading engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	OrdersPlaced    *prometheus.CounterVec // labels: kind
	OrdersExecuted  prometheus.Counter
	OrdersRejected  prometheus.Counter
	OrdersCancelled prometheus.Counter
	FillsApplied    *prometheus.CounterVec // labels: side
	SignalsTotal    *prometheus.CounterVec // labels: strategy, type
	BacktestDur     prometheus.Histogram
	PriceCacheHits  prometheus.Counter
	PriceCacheMiss  prometheus.Counter
}

// New registers all engine metrics with the given registerer and returns them.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_orders_placed_total",
			Help: "Orders accepted by the engine, by kind",
		}, []string{"kind"}),
		OrdersExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_orders_executed_total",
			Help: "Orders executed against the ledger",
		}),
		OrdersRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_orders_rejected_total",
			Help: "Order placements rejected by validation or the ledger",
		}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_orders_cancelled_total",
			Help: "Pending orders cancelled",
		}),
		FillsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_fills_applied_total",
			Help: "Fills applied to holdings, by side",
		}, []string{"side"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_signals_total",
			Help: "Signals generated, by strategy and direction",
		}, []string{"strategy", "type"}),
		BacktestDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_backtest_duration_seconds",
			Help:    "Wall time of backtest runs",
			Buckets: prometheus.DefBuckets,
		}),
		PriceCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_price_cache_hits_total",
			Help: "Price lookups served from the cache",
		}),
		PriceCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_price_cache_misses_total",
			Help: "Price lookups that fell through to the upstream oracle",
		}),
	}

	reg.MustRegister(
		m.OrdersPlaced, m.OrdersExecuted, m.OrdersRejected, m.OrdersCancelled,
		m.FillsApplied, m.SignalsTotal, m.BacktestDur,
		m.PriceCacheHits, m.PriceCacheMiss,
	)
	return m
}

// NewUnregistered returns metrics backed by a private registry, for tests
// and components that do not export.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
