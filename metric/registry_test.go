package metric

import (
	"sync"
	"testing"
)

func TestRegistryDuplicateKindMismatch(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(NewGauge(GaugeOpts{Name: "cpu_temp", Help: "h"})); err != nil {
		t.Fatalf("First registration failed: %v.", err)
	}

	err := reg.Register(NewCounter(CounterOpts{Name: "cpu_temp", Help: "h"}))
	dup, ok := err.(DuplicateMetricNameError)
	if !ok {
		t.Fatalf("Expected DuplicateMetricNameError, got %v.", err)
	}
	if dup.Existing != KindGauge || dup.New != KindCounter {
		t.Errorf("Expected gauge/counter mismatch, got %s/%s.", dup.Existing, dup.New)
	}
}

func TestRegistryDuplicateSameKind(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewGauge(GaugeOpts{Name: "cpu_temp", Help: "h"}))

	err := reg.Register(NewGauge(GaugeOpts{Name: "cpu_temp", Help: "h"}))
	if _, ok := err.(DuplicateMetricNameError); !ok {
		t.Errorf("Expected DuplicateMetricNameError, got %v.", err)
	}
}

func TestRegistryRejectsInvalidDesc(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(NewGauge(GaugeOpts{Name: "not a name", Help: "h"}))
	if err == nil {
		t.Error("Expected registration of invalid descriptor to fail.")
	}
}

func TestRegistrySnapshotSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zz_last", "aa_first", "mm_middle"} {
		if err := reg.Register(NewGauge(GaugeOpts{Name: name, Help: "h"})); err != nil {
			t.Fatalf("Register(%q) failed: %v.", name, err)
		}
	}

	snaps := reg.Snapshot()
	expected := []string{"aa_first", "mm_middle", "zz_last"}
	for i, name := range expected {
		if snaps[i].Name != name {
			t.Errorf("Snapshot[%d]: expected %q, got %q.", i, name, snaps[i].Name)
		}
	}
}

// TestRegistrySnapshotUnderWrites takes snapshots while several goroutines
// write different families. Each family's sample must be self-consistent;
// cross-family skew is allowed.
func TestRegistrySnapshotUnderWrites(t *testing.T) {
	reg := NewRegistry()
	gauge := NewGauge(GaugeOpts{Name: "g", Help: "h", Labels: []string{"target"}})
	counter := NewCounter(CounterOpts{Name: "c_total", Help: "h"})
	hist := NewHistogram(HistogramOpts{
		Opts:    Opts{Name: "d_seconds", Help: "h"},
		Buckets: []float64{1},
	})
	reg.MustRegister(gauge, counter, hist)

	stop := make(chan struct{})
	wg := new(sync.WaitGroup)
	wg.Add(3)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				gauge.Set(Labels{"target": "a"}, 1)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				counter.Inc(nil)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				hist.Observe(nil, 0.5)
			}
		}
	}()

	var lastCounter float64
	for i := 0; i < 100; i++ {
		for _, snap := range reg.Snapshot() {
			switch snap.Name {
			case "c_total":
				if len(snap.Samples) == 0 {
					continue
				}
				v := snap.Samples[0].Value
				if v < lastCounter {
					t.Fatalf("Counter went backwards: %v -> %v.", lastCounter, v)
				}
				lastCounter = v
			case "d_seconds":
				if len(snap.Samples) == 0 {
					continue
				}
				h := snap.Samples[0].Histogram
				if h.Counts[0] != h.Count {
					t.Fatalf("Torn histogram triple: bucket %d, count %d.", h.Counts[0], h.Count)
				}
			}
		}
	}
	close(stop)
	wg.Wait()
}
