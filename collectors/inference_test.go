package collectors

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/cortezlab/pimetrics/metric"
)

func TestInferenceTrackAttributesFailedOps(t *testing.T) {
	reg := metric.NewRegistry()
	inf, err := NewInference(reg, InferenceOpts{})
	if err != nil {
		t.Fatalf("NewInference failed: %v.", err)
	}

	done := inf.Track()
	done(errors.New("device reset"))

	h := inf.durations.Snapshot().Samples[0].Histogram
	if expected, got := uint64(1), h.Count; expected != got {
		t.Errorf("Failed op not attributed: expected count %d, got %d.", expected, got)
	}
}

func TestInferenceActiveGauge(t *testing.T) {
	reg := metric.NewRegistry()
	inf, err := NewInference(reg, InferenceOpts{})
	if err != nil {
		t.Fatalf("NewInference failed: %v.", err)
	}

	done1 := inf.Track()
	done2 := inf.Track()
	if got, _ := inf.active.Value(nil); got != 2 {
		t.Errorf("Expected 2 active, got %v.", got)
	}

	done1(nil)
	if got, _ := inf.active.Value(nil); got != 1 {
		t.Errorf("Expected 1 active, got %v.", got)
	}
	done2(nil)
	if got, _ := inf.active.Value(nil); got != 0 {
		t.Errorf("Expected 0 active, got %v.", got)
	}

	// done is idempotent.
	done2(nil)
	if got, _ := inf.active.Value(nil); got != 0 {
		t.Errorf("Double done moved the gauge: got %v.", got)
	}
}

func TestInferenceSampleRefreshesSummary(t *testing.T) {
	reg := metric.NewRegistry()
	inf, err := NewInference(reg, InferenceOpts{Ranks: []float64{0.5}})
	if err != nil {
		t.Fatalf("NewInference failed: %v.", err)
	}
	for i := 0; i < 10; i++ {
		inf.Track()(nil)
	}

	if err := inf.Sample(context.Background()); err != nil {
		t.Fatalf("Sample returned error: %v.", err)
	}

	sv := inf.quantiles.Snapshot().Samples[0].Summary
	if expected, got := uint64(10), sv.Count; expected != got {
		t.Errorf("Expected count %d, got %d.", expected, got)
	}
	if expected, got := 1, len(sv.Quantiles); expected != got {
		t.Fatalf("Expected %d quantile, got %d.", expected, got)
	}
	if sv.Quantiles[0].Rank != 0.5 {
		t.Errorf("Expected rank 0.5, got %v.", sv.Quantiles[0].Rank)
	}
}
