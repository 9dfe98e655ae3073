package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalfeed_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signalfeed_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Ingestion
	IngestionCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalfeed_ingestion_cycles_total",
			Help: "Ingestion cycles by trigger",
		},
		[]string{"trigger"},
	)
	IngestionOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalfeed_ingestion_symbol_outcomes_total",
			Help: "Per-symbol ingestion outcomes",
		},
		[]string{"outcome"},
	)
	IngestionCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signalfeed_ingestion_cycle_duration_seconds",
			Help:    "Wall time of one ingestion cycle",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)
	MarketDataFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signalfeed_market_data_fetch_duration_seconds",
			Help:    "Latency of market data history fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	// Store
	SignalsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signalfeed_signals_expired_total",
			Help: "Signals moved to EXPIRED by staleness policy",
		},
	)
	SignalsCleared = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signalfeed_signals_cleared_total",
			Help: "Signals physically removed by clear operations",
		},
	)
	AdminActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalfeed_admin_actions_total",
			Help: "Admin signal actions",
		},
		[]string{"action"},
	)
	FeedSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signalfeed_feed_stream_subscribers",
			Help: "Open live feed connections",
		},
	)
)

var initOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			IngestionCycles,
			IngestionOutcomes,
			IngestionCycleDuration,
			MarketDataFetchDuration,
			SignalsExpired,
			SignalsCleared,
			AdminActions,
			FeedSubscribers,
		)
	})
}

// GinMiddleware records request counts and latency by route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
