// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	CollectionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collections_recorded_total",
			Help: "Collections recorded by field staff",
		},
		[]string{"payment_mode"},
	)

	CollectedAmount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collections_amount_total",
			Help: "Sum of collected amounts",
		},
		[]string{"payment_mode"},
	)

	HandoverTransactions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "handover_transactions_verified_total",
			Help: "Cash transactions moved into office custody",
		},
	)

	BalanceChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_balance_changes_total",
			Help: "Ledger mutations by kind",
		},
		[]string{"kind"},
	)

	ReconciliationsVerified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciliations_verified_total",
			Help: "Reconciliation verifications by resulting status",
		},
		[]string{"status"},
	)

	DaysClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciliation_days_closed_total",
			Help: "End-of-day sweeps executed",
		},
	)
)

// ObserveCollection records one collection.
func ObserveCollection(mode string, amount decimal.Decimal) {
	CollectionsRecorded.WithLabelValues(mode).Inc()
	f, _ := amount.Float64()
	CollectedAmount.WithLabelValues(mode).Add(f)
}
