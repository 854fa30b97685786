package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer provides OpenTelemetry spans around agent-runtime iterations and
// tool executions. seedd runs as a single local process, so the default
// provider keeps spans in-process rather than shipping them to a
// collector; callers that need export can supply their own
// sdktrace.SpanExporter via NewTracerWithExporter.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   TraceConfig
}

// TraceConfig configures the tracer's resource attributes and sampling.
type TraceConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// SamplingRate controls what fraction of traces are recorded (0..1).
	// Defaults to 1.0.
	SamplingRate float64

	Attributes map[string]string
}

// SpanOptions configures span creation.
type SpanOptions struct {
	Kind       trace.SpanKind
	Attributes []attribute.KeyValue
}

func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate <= 0:
		return sdktrace.NeverSample()
	case rate >= 1:
		return sdktrace.AlwaysSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// NewTracer builds a Tracer per cfg with no span exporter attached (spans
// are sampled and timed but not shipped anywhere). Use
// NewTracerWithExporter to attach a real backend.
func NewTracer(cfg TraceConfig) (*Tracer, func(context.Context) error) {
	return NewTracerWithExporter(cfg, nil)
}

// NewTracerWithExporter builds a Tracer per cfg, batching spans to exp if
// non-nil.
func NewTracerWithExporter(cfg TraceConfig, exp sdktrace.SpanExporter) (*Tracer, func(context.Context) error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "seed"
	}
	if cfg.SamplingRate == 0 {
		cfg.SamplingRate = 1.0
	}

	attrs := []attribute.KeyValue{
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	}
	if cfg.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", cfg.Environment))
	}
	for k, v := range cfg.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(samplerFor(cfg.SamplingRate)),
	}
	if exp != nil {
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)

	t := &Tracer{
		provider: provider,
		tracer:   provider.Tracer(cfg.ServiceName, trace.WithInstrumentationAttributes(attrs...)),
		config:   cfg,
	}
	return t, provider.Shutdown
}

// Start opens a span named name and returns the context carrying it.
func (t *Tracer) Start(ctx context.Context, name string, opts ...SpanOptions) (context.Context, trace.Span) {
	var options []trace.SpanStartOption
	if len(opts) > 0 {
		o := opts[0]
		if o.Kind != 0 {
			options = append(options, trace.WithSpanKind(o.Kind))
		}
		if len(o.Attributes) > 0 {
			options = append(options, trace.WithAttributes(o.Attributes...))
		}
	}
	return t.tracer.Start(ctx, name, options...)
}

// StartSpan is a convenience wrapper around Start for callers that only
// need the span, not the derived context.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...SpanOptions) trace.Span {
	_, span := t.Start(ctx, name, opts...)
	return span
}
