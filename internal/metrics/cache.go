package metrics

import "github.com/prometheus/client_golang/prometheus"

// Cache and upstream Prometheus metrics.
var (
	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookdex",
			Name:      "cache_requests_total",
			Help:      "Cache lookups by namespace and result",
		},
		[]string{"namespace", "result"}, // result: "hit" / "miss"
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bookdex",
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream fetch duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"target", "status"},
	)
)

var cacheMetricsRegistered bool

// RegisterCacheMetrics registers cache and upstream metrics. Must be called once from main.
func RegisterCacheMetrics() {
	if cacheMetricsRegistered {
		return
	}
	prometheus.MustRegister(CacheTotal)
	prometheus.MustRegister(UpstreamRequestDuration)
	cacheMetricsRegistered = true
}
