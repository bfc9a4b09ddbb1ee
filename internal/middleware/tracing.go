package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"diagsvc/internal/telemetry"
)

// Trace wraps dispatch in a server span. A nil or disabled tracer makes it a
// pass-through.
func Trace(tracer *telemetry.Tracer) gin.HandlerFunc {
	if !tracer.Enabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		r := c.Request
		ctx := tracer.Propagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := c.FullPath()
		spanName := r.Method + " " + route
		if route == "" {
			spanName = r.Method
		}
		ctx, span := tracer.StartSpan(ctx, spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.URLPath(r.URL.Path),
				semconv.HTTPRoute(route),
				attribute.String("http.host", r.Host),
				attribute.String("request.id", GetRequestID(c)),
			),
		)
		defer span.End()

		c.Request = r.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
