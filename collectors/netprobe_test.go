package collectors

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/cortezlab/pimetrics/metric"
)

func TestNetProbeRecordsLatency(t *testing.T) {
	reg := metric.NewRegistry()
	probe, err := NewNetProbe(reg, NetProbeOpts{Targets: []string{"8.8.8.8"}})
	if err != nil {
		t.Fatalf("NewNetProbe failed: %v.", err)
	}
	probe.probe = func(ctx context.Context, target string) (time.Duration, error) {
		return 12400 * time.Microsecond, nil
	}

	if err := probe.Sample(context.Background()); err != nil {
		t.Fatalf("Sample returned error: %v.", err)
	}
	got, _ := probe.latency.Value(metric.Labels{"target": "8.8.8.8"})
	if expected := 12.4; expected != got {
		t.Errorf("Expected %v ms, got %v.", expected, got)
	}
}

// A timed-out target reads the sentinel, never the previous measurement:
// reachability failure is the signal of interest.
func TestNetProbeSentinelOnTimeout(t *testing.T) {
	reg := metric.NewRegistry()
	probe, err := NewNetProbe(reg, NetProbeOpts{
		Targets: []string{"8.8.8.8"},
		Timeout: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewNetProbe failed: %v.", err)
	}

	probe.probe = func(ctx context.Context, target string) (time.Duration, error) {
		return 8 * time.Millisecond, nil
	}
	if err := probe.Sample(context.Background()); err != nil {
		t.Fatalf("Sample returned error: %v.", err)
	}

	probe.probe = func(ctx context.Context, target string) (time.Duration, error) {
		return 0, context.DeadlineExceeded
	}
	if err := probe.Sample(context.Background()); err != nil {
		t.Fatalf("Unreachable target is data, not a sampling error; got %v.", err)
	}

	got, _ := probe.latency.Value(metric.Labels{"target": "8.8.8.8"})
	if expected := float64(LatencySentinelMS); expected != got {
		t.Errorf("Expected sentinel %v, got %v.", expected, got)
	}
	failures, _ := probe.failures.Value(metric.Labels{"target": "8.8.8.8"})
	if expected := 1.0; expected != failures {
		t.Errorf("Expected %v probe failures, got %v.", expected, failures)
	}
}

func TestNetProbePerTargetIsolation(t *testing.T) {
	reg := metric.NewRegistry()
	probe, err := NewNetProbe(reg, NetProbeOpts{Targets: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("NewNetProbe failed: %v.", err)
	}
	probe.probe = func(ctx context.Context, target string) (time.Duration, error) {
		if target == "a" {
			return 0, errors.New("no route")
		}
		return 5 * time.Millisecond, nil
	}

	if err := probe.Sample(context.Background()); err != nil {
		t.Fatalf("Sample returned error: %v.", err)
	}
	if got, _ := probe.latency.Value(metric.Labels{"target": "a"}); got != LatencySentinelMS {
		t.Errorf("Target a: expected sentinel, got %v.", got)
	}
	if got, _ := probe.latency.Value(metric.Labels{"target": "b"}); got != 5 {
		t.Errorf("Target b: expected 5, got %v.", got)
	}
}
