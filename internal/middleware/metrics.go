package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partner_calculator_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		},
		[]string{"route", "method", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partner_calculator_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	documentWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "partner_calculator_document_writes_total",
			Help: "Confirmed full-document workspace writes.",
		},
	)

	pushSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "partner_calculator_push_subscribers",
			Help: "Currently connected push-subscription clients.",
		},
	)
)

// Metrics records request counts and latencies. Routes are labelled by the
// gin route pattern, not the raw path, to keep cardinality bounded.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// CountDocumentWrite bumps the confirmed-write counter.
func CountDocumentWrite() { documentWrites.Inc() }

// TrackSubscriber adjusts the connected-subscriber gauge.
func TrackSubscriber(delta float64) { pushSubscribers.Add(delta) }
