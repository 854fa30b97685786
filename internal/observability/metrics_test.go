package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsEventAppendCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.EventAppendCounter.WithLabelValues("TaskCreated").Inc()
	m.EventAppendCounter.WithLabelValues("TaskCreated").Inc()

	var out dto.Metric
	if err := m.EventAppendCounter.WithLabelValues("TaskCreated").Write(&out); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := out.GetCounter().GetValue(); got != 2 {
		t.Fatalf("got %v want 2", got)
	}
}

func TestMetricsActiveRuntimesGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ActiveRuntimes.Set(3)
	var out dto.Metric
	if err := m.ActiveRuntimes.Write(&out); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := out.GetGauge().GetValue(); got != 3 {
		t.Fatalf("got %v want 3", got)
	}
}
