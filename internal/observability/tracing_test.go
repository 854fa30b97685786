package observability

import (
	"context"
	"testing"
)

func TestTracerStartEndsSpan(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "seed-test"})
	defer shutdown(context.Background())

	ctx, span := tracer.Start(context.Background(), "runtime.iteration")
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
	span.End()
}

func TestSamplerForBoundaries(t *testing.T) {
	for _, rate := range []float64{0, 1, 0.5, -1, 2} {
		if samplerFor(rate) == nil {
			t.Fatalf("samplerFor(%v) returned nil", rate)
		}
	}
}
