package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diagsvc/internal/metrics"
)

// unmatchedPath labels requests that hit no route, keeping label
// cardinality bounded.
const unmatchedPath = "unmatched"

// RecordMetrics counts requests and observes their latency. Sink errors and
// panics are logged at debug level and never reach the client.
func RecordMetrics(sink metrics.Sink, log *zap.Logger) gin.HandlerFunc {
	if !metrics.Enabled(sink) {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedPath
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		swallow(log, metrics.RequestsTotal, func() error {
			return sink.IncrementCounter(metrics.RequestsTotal, map[string]string{
				"method": method,
				"path":   path,
				"status": status,
			})
		})
		swallow(log, metrics.RequestDuration, func() error {
			return sink.ObserveHistogram(metrics.RequestDuration, map[string]string{
				"method": method,
				"path":   path,
			}, time.Since(start).Seconds())
		})
	}
}

// swallow runs fn, discarding any error or panic it produces.
func swallow(log *zap.Logger, what string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug("metrics sink panicked", zap.String("metric", what), zap.String("panic", fmt.Sprint(r)))
		}
	}()
	if err := fn(); err != nil {
		log.Debug("metrics sink failed", zap.String("metric", what), zap.Error(err))
	}
}
