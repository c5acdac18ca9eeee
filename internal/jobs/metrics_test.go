package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTrackerRecordsFailure(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	wantErr := errors.New("boom")
	tracker := metrics.Track("dash:warmup")
	if got := tracker.End(wantErr); !errors.Is(got, wantErr) {
		t.Fatalf("End must return the error untouched, got %v", got)
	}

	if got := testutil.ToFloat64(metrics.failures.WithLabelValues("dash:warmup")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.runs.WithLabelValues("dash:warmup", "failure")); got != 1 {
		t.Fatalf("expected 1 failed run, got %v", got)
	}
}

func TestTrackerRecordsSuccess(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	if err := metrics.Track("dash:warmup").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := testutil.ToFloat64(metrics.runs.WithLabelValues("dash:warmup", "success")); got != 1 {
		t.Fatalf("expected 1 successful run, got %v", got)
	}
}

func TestNilMetricsTrackerIsInert(t *testing.T) {
	var metrics *Metrics
	if err := metrics.Track("dash:warmup").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
