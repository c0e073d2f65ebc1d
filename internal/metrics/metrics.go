// Package metrics exposes Prometheus instruments for gateway operations.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Metrics groups the instruments. A nil *Metrics is valid and records nothing.
type Metrics struct {
	operations   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bkash_operations_total",
			Help: "bKash checkout operations by outcome.",
		}, []string{"operation", "tenant_scoped", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bkash_operation_duration_seconds",
			Help:    "Latency of bKash checkout operations, token fetch included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bkash_token_cache_lookups_total",
			Help: "Token cache lookups by token kind and result.",
		}, []string{"kind", "result"}),
	}
}

// ObserveOperation records one finished operation.
func (m *Metrics) ObserveOperation(operation string, tenantScoped bool, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.operations.WithLabelValues(operation, strconv.FormatBool(tenantScoped), outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// CacheLookup records a token cache hit or miss.
func (m *Metrics) CacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}
