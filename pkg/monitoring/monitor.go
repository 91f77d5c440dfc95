package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 引擎侧业务指标
	PlansGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roadmap_plans_generated_total",
			Help: "Total number of roadmap plans generated",
		},
	)

	MonitoringCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roadmap_monitoring_cycles_total",
			Help: "Total number of completed monitoring windows",
		},
	)

	FlagsRaised = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roadmap_flags_raised_total",
			Help: "Total number of irregularity flags raised by monitoring",
		},
	)

	RevisionsBuilt = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roadmap_revisions_built_total",
			Help: "Total number of revisions produced by reconciliation",
		},
	)

	RevisionsApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roadmap_revisions_applied_total",
			Help: "Total number of revisions applied to plans",
		},
	)

	OperationsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roadmap_operations_skipped_total",
			Help: "Total number of revision operations dropped by invariant checks",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(PlansGenerated)
	prometheus.MustRegister(MonitoringCycles)
	prometheus.MustRegister(FlagsRaised)
	prometheus.MustRegister(RevisionsBuilt)
	prometheus.MustRegister(RevisionsApplied)
	prometheus.MustRegister(OperationsSkipped)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
