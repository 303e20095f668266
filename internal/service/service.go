package service

import (
	"time"

	"sample-app/internal/util"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Option customizes a service
type Option func(*options)

type options struct {
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// WithLogger overrides the global logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTracer overrides the global tracer, which is otherwise resolved per span
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithClock overrides time.Now for order timestamps
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) options {
	o := options{
		logger: util.GetLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
