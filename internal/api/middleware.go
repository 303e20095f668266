package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"sample-app/internal/correlation"
	"sample-app/internal/util"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const correlationKey = "correlation"

// Instrument wraps the router so every request runs inside a server span
// before the gin middleware chain starts.
func Instrument(router http.Handler, tp trace.TracerProvider) http.Handler {
	return otelhttp.NewHandler(router, "http-server",
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithPropagators(otel.GetTextMapPropagator()),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// correlationMiddleware resolves the correlation context of the request,
// echoes it on the response and exposes it to handlers.
func correlationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		cc := correlation.FromRequestContext(ctx, c.GetHeader(correlation.HeaderName))

		c.Header(correlation.HeaderName, cc.CorrelationID)
		c.Set(correlationKey, cc)
		trace.SpanFromContext(ctx).SetAttributes(cc.Attribute())
		c.Request = c.Request.WithContext(correlation.WithContext(ctx, cc))

		c.Next()
	}
}

// requestCorrelation returns the correlation context bound to c
func requestCorrelation(c *gin.Context) correlation.Context {
	if v, ok := c.Get(correlationKey); ok {
		if cc, ok := v.(correlation.Context); ok {
			return cc
		}
	}
	if cc, ok := correlation.FromContext(c.Request.Context()); ok {
		return cc
	}
	return correlation.FromRequestContext(c.Request.Context(), c.GetHeader(correlation.HeaderName))
}

// recoveryMiddleware turns a handler panic into a 500 for that request only
func recoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered interface{}) {
		util.HTTPPanicsTotal.Inc()

		span := trace.SpanFromContext(c.Request.Context())
		span.RecordError(fmt.Errorf("panic: %v", recovered))
		span.SetStatus(codes.Error, "panic recovered")

		requestCorrelation(c).Logger(logger).Error("Unhandled panic in request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
			zap.Stack("stack"))

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	})
}

// timeoutMiddleware bounds the request context
func timeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// accessLogMiddleware logs one line per completed request
func accessLogMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		requestCorrelation(c).Logger(logger).Info("Request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
