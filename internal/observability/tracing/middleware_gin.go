package tracing

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/costline/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "costline/http"

// MiddlewareConfig controls request tracing.
type MiddlewareConfig struct {
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
	// ErrorClassifier maps the last handler error to (type, code).
	ErrorClassifier func(err error) (string, string)
}

// routeResources names the resource a route's :id parameter refers to.
var routeResources = []struct {
	prefix string
	key    attribute.Key
}{
	{"/api/documents/", "costline.document_id"},
	{"/api/commitments/", "costline.commitment_id"},
	{"/api/change-orders/", "costline.change_order_id"},
}

// GinMiddleware opens a server span per request and tags it with the
// costline resource ids found in the route.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	provider := cfg.TracerProvider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	tracer := provider.Tracer(tracerName)

	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		method := strings.ToUpper(c.Request.Method)
		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			if member, err := baggage.NewMember("request_id", requestID); err == nil {
				if bag, err := baggage.New(member); err == nil {
					ctx = baggage.ContextWithBaggage(ctx, bag)
				}
			}
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		span.SetAttributes(SafeAttributes(resourceAttributes(c)...)...)

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)
		span.SetAttributes(SafeAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		)...)

		lastErr := c.Errors.Last()
		if lastErr == nil || status < http.StatusBadRequest {
			return
		}
		if cfg.ErrorClassifier != nil {
			errorType, errorCode := cfg.ErrorClassifier(lastErr.Err)
			span.SetAttributes(SafeAttributes(
				attribute.String("costline.error_type", errorType),
				attribute.String("costline.error_code", errorCode),
			)...)
		}
		if status >= http.StatusInternalServerError {
			if safeErr := SafeError(lastErr.Err); safeErr != nil {
				span.RecordError(safeErr)
			}
			span.SetStatus(codes.Error, "request error")
		}
	}
}

func resourceAttributes(c *gin.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	route := c.FullPath()

	if id := strings.TrimSpace(c.Param("id")); id != "" {
		for _, r := range routeResources {
			if strings.HasPrefix(route, r.prefix) {
				attrs = append(attrs, r.key.String(id))
				break
			}
		}
	}
	if id := strings.TrimSpace(c.Param("project_id")); id != "" {
		attrs = append(attrs, attribute.String("costline.project_id", id))
	}
	if id := strings.TrimSpace(c.Param("line_id")); id != "" {
		attrs = append(attrs, attribute.String("costline.line_id", id))
	}
	return attrs
}
