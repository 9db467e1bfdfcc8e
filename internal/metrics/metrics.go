// Package metrics exposes prometheus collectors for wallet operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "custody_wallet"

// Sign attempt outcomes.
const (
	ResultOK               = "ok"
	ResultNotFound         = "not_found"
	ResultAuthFailed       = "auth_failed"
	ResultChainError       = "chain_error"
	ResultSubmissionFailed = "submission_failed"
	ResultCanceled         = "canceled"
	ResultInternal         = "internal"
)

// Metrics groups the collectors used across the service.
type Metrics struct {
	SignAttempts   *prometheus.CounterVec
	SignInFlight   prometheus.Gauge
	SubmitDuration prometheus.Histogram
	Wallets        prometheus.Gauge
	Backups        *prometheus.CounterVec
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in
// tests to keep them isolated.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		SignAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signer",
			Name:      "attempts_total",
			Help:      "Transaction signing attempts by outcome.",
		}, []string{"result"}),
		SignInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "signer",
			Name:      "in_flight",
			Help:      "Signing attempts currently between unlock and submission.",
		}),
		SubmitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "signer",
			Name:      "submit_duration_seconds",
			Help:      "Latency of raw transaction submission to the chain client.",
			Buckets:   prometheus.DefBuckets,
		}),
		Wallets: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wallets",
			Help:      "Number of wallets held in the registry.",
		}),
		Backups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backup",
			Name:      "operations_total",
			Help:      "Backup exports and restores by outcome.",
		}, []string{"op", "result"}),
	}
}

// NewNop returns collectors registered nowhere.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
