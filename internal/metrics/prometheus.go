package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics mirrors Metrics's counters as real Prometheus
// collectors, registered against their own Registry so InitPrometheus
// can be called at most once per process without panicking on duplicate
// registration (the teacher's own constraint, kept as-is).
type PrometheusMetrics struct {
	registry *prometheus.Registry

	oplogOps prometheus.Counter
	oplogOpsByKind *prometheus.CounterVec

	invocationsTotal   *prometheus.CounterVec
	invocationDuration prometheus.Histogram

	shardRebalances   prometheus.Counter
	shardForwards     prometheus.Counter
	shardMovedRetries prometheus.Counter
}

var defaultBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

var promMetrics *PrometheusMetrics

// InitPrometheus registers every collector under namespace and must be
// called exactly once before any Record* call; it is a no-op safeguard
// against double-init since cmd/golem-node only calls it when
// cfg.Observability.Metrics.Enabled is true.
func InitPrometheus(namespace string, buckets []float64) {
	if promMetrics != nil {
		return
	}
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}
	reg := prometheus.NewRegistry()

	pm := &PrometheusMetrics{
		registry: reg,
		oplogOps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oplog_ops_total",
			Help:      "Total oplog operations (append+read) across all workers.",
		}),
		oplogOpsByKind: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oplog_ops_by_kind_total",
			Help:      "Oplog operations broken down by append/read.",
		}, []string{"kind"}),
		invocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Completed invoke_and_await calls, labeled by outcome.",
		}, []string{"outcome"}),
		invocationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_ms",
			Help:      "Invoke-and-await duration in milliseconds, local or forwarded.",
			Buckets:   buckets,
		}),
		shardRebalances: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shard_rebalances_total",
			Help:      "Shard reassignment passes that changed the assignment table.",
		}),
		shardForwards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shard_forwards_total",
			Help:      "Invocations forwarded to a remote node's owning shard.",
		}),
		shardMovedRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shard_moved_retries_total",
			Help:      "Retries taken after a remote node reported its shard moved.",
		}),
	}

	reg.MustRegister(pm.oplogOps, pm.oplogOpsByKind, pm.invocationsTotal, pm.invocationDuration,
		pm.shardRebalances, pm.shardForwards, pm.shardMovedRetries)

	promMetrics = pm
}

// RecordPrometheusOplogOp increments the oplog counters; kind is
// "append" or "read". A no-op until InitPrometheus has run.
func RecordPrometheusOplogOp(kind string) {
	if promMetrics == nil {
		return
	}
	promMetrics.oplogOps.Inc()
	promMetrics.oplogOpsByKind.WithLabelValues(kind).Inc()
}

// RecordPrometheusInvocation observes one invoke_and_await's duration
// and outcome. A no-op until InitPrometheus has run.
func RecordPrometheusInvocation(durationMs int64, success bool) {
	if promMetrics == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "error"
	}
	promMetrics.invocationsTotal.WithLabelValues(outcome).Inc()
	promMetrics.invocationDuration.Observe(float64(durationMs))
}

// RecordPrometheusShardRebalance increments the rebalance counter. A
// no-op until InitPrometheus has run.
func RecordPrometheusShardRebalance() {
	if promMetrics == nil {
		return
	}
	promMetrics.shardRebalances.Inc()
}

// RecordPrometheusForward increments the forward counter. A no-op until
// InitPrometheus has run.
func RecordPrometheusForward() {
	if promMetrics == nil {
		return
	}
	promMetrics.shardForwards.Inc()
}

// RecordPrometheusShardMovedRetry increments the shard-moved retry
// counter. A no-op until InitPrometheus has run.
func RecordPrometheusShardMovedRetry() {
	if promMetrics == nil {
		return
	}
	promMetrics.shardMovedRetries.Inc()
}

// PrometheusHandler serves the registered collectors in the standard
// exposition format, or 503s if InitPrometheus was never called.
func PrometheusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if promMetrics == nil {
			http.Error(w, "prometheus metrics not initialized", http.StatusServiceUnavailable)
			return
		}
		promhttp.HandlerFor(promMetrics.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

// PrometheusRegistry returns the active registry, or nil before
// InitPrometheus runs.
func PrometheusRegistry() *prometheus.Registry {
	if promMetrics == nil {
		return nil
	}
	return promMetrics.registry
}
