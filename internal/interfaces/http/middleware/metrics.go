package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// httpDurationBuckets suit API calls dominated by statement parsing
var httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

type httpMetrics struct {
	requests *telemetry.Counter
	duration *telemetry.Histogram
	uploaded *telemetry.Histogram
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requests, err := telemetry.NewCounter(meter,
		"http_server_request_total",
		"Total number of HTTP requests",
		"{request}",
	)
	if err != nil {
		return nil, err
	}
	duration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency distribution in seconds",
		Unit:        "s",
		Buckets:     httpDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	uploaded, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_size_bytes",
		Description: "HTTP request body size distribution in bytes",
		Unit:        "By",
		Buckets:     []float64{1 << 10, 10 << 10, 100 << 10, 1 << 20, 5 << 20, 10 << 20, 25 << 20},
	})
	if err != nil {
		return nil, err
	}
	return &httpMetrics{requests: requests, duration: duration, uploaded: uploaded}, nil
}

// HTTPMetrics counts requests and records latency and body size per route.
// Unmatched routes are labelled "unmatched" to keep cardinality bounded.
func HTTPMetrics(mp *telemetry.MeterProvider) gin.HandlerFunc {
	if mp == nil || !mp.IsEnabled() {
		return func(c *gin.Context) { c.Next() }
	}
	m, err := newHTTPMetrics(mp.Meter("http.server"))
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx := c.Request.Context()
		attrs := []attribute.KeyValue{
			attribute.String("method", c.Request.Method),
			attribute.String("route", route),
		}
		m.requests.Inc(ctx, append(attrs, attribute.String("status_code", strconv.Itoa(c.Writer.Status())))...)
		m.duration.RecordDuration(ctx, time.Since(start), attrs...)
		if c.Request.ContentLength > 0 {
			m.uploaded.Record(ctx, float64(c.Request.ContentLength), attrs...)
		}
	}
}
