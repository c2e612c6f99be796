package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	// TransactionsTotal counts committed ledger entries by type.
	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bancocred_transactions_total",
			Help: "Committed ledger transactions",
		},
		[]string{"type"},
	)

	// TransactionAmountTotal sums committed amounts in BRL by type.
	TransactionAmountTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bancocred_transaction_amount_brl_total",
			Help: "Committed transaction volume in BRL",
		},
		[]string{"type"},
	)

	// TransactionErrorsTotal counts rejected or failed operations by error code.
	TransactionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bancocred_transaction_errors_total",
			Help: "Failed ledger operations",
		},
		[]string{"type", "code"},
	)

	// TransactionDuration observes the time spent inside a unit of work.
	TransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bancocred_transaction_duration_seconds",
			Help:    "Time to lock, apply and commit a transaction",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	// RateLookupsTotal counts answered quotes by currency and source.
	RateLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bancocred_rate_lookups_total",
			Help: "Exchange rate quotes served by source",
		},
		[]string{"currency", "source"},
	)

	// RateProviderFailuresTotal counts failed provider calls.
	RateProviderFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bancocred_rate_provider_failures_total",
			Help: "Failed calls to exchange rate providers",
		},
		[]string{"provider", "currency"},
	)
)

// ObserveTransaction records a committed transaction.
func ObserveTransaction(txnType string, amount decimal.Decimal, seconds float64) {
	TransactionsTotal.WithLabelValues(txnType).Inc()
	TransactionAmountTotal.WithLabelValues(txnType).Add(amount.InexactFloat64())
	TransactionDuration.WithLabelValues(txnType).Observe(seconds)
}

// ObserveFailure records a failed operation.
func ObserveFailure(txnType, code string) {
	TransactionErrorsTotal.WithLabelValues(txnType, code).Inc()
}
