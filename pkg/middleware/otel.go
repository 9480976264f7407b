package middleware

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/weft-dev/weft/pkg/reactive"
)

// Default tracer name for weft scopes.
const defaultTracerName = "weft"

// TraceConfig configures the OpenTelemetry middleware.
type TraceConfig struct {
	// TracerName is the name of the tracer (default: "weft").
	TracerName string

	// Filter determines which runs to trace. Return true to trace the
	// run, false to skip. If nil, all runs are traced.
	Filter func(info reactive.RunInfo) bool

	// AttributeExtractor extracts custom attributes for each traced run.
	AttributeExtractor func(info reactive.RunInfo) []attribute.KeyValue
}

// TraceOption configures the OpenTelemetry middleware.
type TraceOption func(*TraceConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TraceOption {
	return func(c *TraceConfig) {
		c.TracerName = name
	}
}

// WithTraceFilter sets a filter function for runs.
func WithTraceFilter(filter func(info reactive.RunInfo) bool) TraceOption {
	return func(c *TraceConfig) {
		c.Filter = filter
	}
}

// WithTraceAttributes sets a custom attribute extractor.
func WithTraceAttributes(extractor func(info reactive.RunInfo) []attribute.KeyValue) TraceOption {
	return func(c *TraceConfig) {
		c.AttributeExtractor = extractor
	}
}

// OpenTelemetry creates middleware that opens a span for every flush
// pass and effect run in a scope. Silent stops are not recorded as span
// errors; everything else is.
//
// The tracer uses the global OpenTelemetry tracer provider; configure
// it in main() before creating scopes.
func OpenTelemetry(opts ...TraceOption) reactive.Middleware {
	config := TraceConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	tracer := otel.Tracer(config.TracerName)

	return func(next reactive.RunFunc) reactive.RunFunc {
		return func(info reactive.RunInfo) error {
			if config.Filter != nil && !config.Filter(info) {
				return next(info)
			}

			name := "reactive.flush"
			if info.Kind == reactive.RunEffect {
				name = "reactive.effect"
			}
			attrs := []attribute.KeyValue{
				attribute.String("reactive.scope", info.Scope),
				attribute.String("reactive.kind", info.Kind.String()),
			}
			if info.Kind == reactive.RunEffect {
				attrs = append(attrs,
					attribute.String("reactive.effect", info.Label),
					attribute.Int("reactive.priority", info.Priority),
				)
			}
			if config.AttributeExtractor != nil {
				attrs = append(attrs, config.AttributeExtractor(info)...)
			}

			_, span := tracer.Start(context.Background(), name,
				trace.WithAttributes(attrs...))
			defer span.End()

			err := next(info)
			if err != nil && !errors.Is(err, reactive.ErrSilentStop) {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return err
		}
	}
}
