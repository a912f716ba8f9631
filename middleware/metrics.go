package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cameronkey/petproduct-sp-ecom/metrics"
	awspkg "github.com/cameronkey/petproduct-sp-ecom/pkg/aws"
)

// PrometheusMetrics records request count, latency and in-flight gauge.
// Routes are labelled by their template to keep cardinality bounded.
func PrometheusMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// MetricsMiddleware creates a Gin middleware that tracks HTTP metrics in
// CloudWatch. It is a pass-through when the client is nil or disabled.
func MetricsMiddleware(metricsClient *awspkg.MetricsClient, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !metricsClient.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		dimensions := map[string]string{
			"Service": serviceName,
			"Method":  c.Request.Method,
			"Path":    path,
			"Status":  statusCodeToRange(statusCode),
		}

		datums := []awspkg.Datum{
			awspkg.Count(awspkg.MetricHTTPRequests),
			awspkg.Latency(awspkg.MetricHTTPLatency, duration),
		}
		if statusCode >= 400 {
			datums = append(datums, awspkg.Count(awspkg.MetricHTTPErrors))
			if statusCode < 500 {
				datums = append(datums, awspkg.Count(awspkg.MetricHTTP4xx))
			} else {
				datums = append(datums, awspkg.Count(awspkg.MetricHTTP5xx))
			}
		}

		// Record asynchronously so CloudWatch latency never reaches the client.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsClient.PutMetrics(ctx, dimensions, datums...)
		}()
	}
}

func statusCodeToRange(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
