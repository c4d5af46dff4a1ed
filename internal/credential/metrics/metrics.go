// Package metrics holds Prometheus instruments for the credential services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the credential pipeline instruments.
type Metrics struct {
	IssuedTotal       prometheus.Counter
	IssuanceFailures  *prometheus.CounterVec
	IssuanceDuration  prometheus.Histogram
	VerifierCalls     prometheus.Counter
	VerifierCacheHits prometheus.Counter
	OracleVerdicts    *prometheus.CounterVec
}

// New creates and registers all credential metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		IssuedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "crdbl_credentials_issued_total",
			Help: "Credentials successfully issued and persisted",
		}),
		IssuanceFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crdbl_issuance_failures_total",
			Help: "Issuance attempts aborted, by error code",
		}, []string{"code"}),
		IssuanceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "crdbl_issuance_duration_seconds",
			Help:    "End-to-end issuance latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		VerifierCalls: promauto.NewCounter(prometheus.CounterOpts{
			Name: "crdbl_verifier_calls_total",
			Help: "Calls made to the external credential verifier",
		}),
		VerifierCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "crdbl_verifier_cache_hits_total",
			Help: "Verification verdicts served from the TTL cache",
		}),
		OracleVerdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crdbl_oracle_verdicts_total",
			Help: "Consistency oracle verdicts, by outcome",
		}, []string{"verdict"}),
	}
}
