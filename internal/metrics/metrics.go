package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	paymentCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Payment provider callbacks by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	paymentIntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_total",
			Help: "Payment redirects requested from providers",
		},
		[]string{"provider", "result"},
	)

	settlementOrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_orders_total",
			Help: "Orders handled by the settlement pass by outcome",
		},
		[]string{"outcome"},
	)

	settlementPassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "settlement_pass_duration_seconds",
			Help:    "Wall time of one settlement pass",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(paymentCallbacksTotal)
	prometheus.MustRegister(paymentIntentsTotal)
	prometheus.MustRegister(settlementOrdersTotal)
	prometheus.MustRegister(settlementPassDuration)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func RecordCallback(provider, outcome string) {
	paymentCallbacksTotal.WithLabelValues(provider, outcome).Inc()
}

func RecordIntent(provider string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	paymentIntentsTotal.WithLabelValues(provider, result).Inc()
}

// RecordSettlement adds one pass's per-outcome counts.
func RecordSettlement(cancelled, skipped, failed int, d time.Duration) {
	settlementOrdersTotal.WithLabelValues("cancelled").Add(float64(cancelled))
	settlementOrdersTotal.WithLabelValues("skipped").Add(float64(skipped))
	settlementOrdersTotal.WithLabelValues("failed").Add(float64(failed))
	settlementPassDuration.Observe(d.Seconds())
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
