package metric

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderGaugeAndCounter(t *testing.T) {
	reg := NewRegistry()
	gauge := NewGauge(GaugeOpts{
		Name:   "network_latency_ms",
		Help:   "Round trip time per target.",
		Labels: []string{"target"},
	})
	counter := NewCounter(CounterOpts{
		Name: "collector_runs_total",
		Help: "Total sampling attempts.",
	})
	reg.MustRegister(gauge, counter)

	gauge.Set(Labels{"target": "8.8.8.8"}, 9999)
	counter.Add(nil, 3)

	buf := &bytes.Buffer{}
	if err := Render(buf, reg.Snapshot()); err != nil {
		t.Fatalf("Render returned error: %v.", err)
	}
	out := buf.String()

	for _, expected := range []string{
		"# HELP collector_runs_total Total sampling attempts.\n",
		"# TYPE collector_runs_total counter\n",
		"collector_runs_total 3\n",
		"# TYPE network_latency_ms gauge\n",
		`network_latency_ms{target="8.8.8.8"} 9999` + "\n",
	} {
		if !strings.Contains(out, expected) {
			t.Errorf("Output missing %q.\nGot:\n%s", expected, out)
		}
	}

	// Families render in lexicographic order.
	if strings.Index(out, "collector_runs_total") > strings.Index(out, "network_latency_ms") {
		t.Errorf("Families not sorted by name.\nGot:\n%s", out)
	}
}

func TestRenderHistogramCumulative(t *testing.T) {
	hist := NewHistogram(HistogramOpts{
		Opts:    Opts{Name: "op_seconds", Help: "h"},
		Buckets: []float64{0.5, 1},
	})
	hist.Observe(nil, 0.2)
	hist.Observe(nil, 0.7)
	hist.Observe(nil, 5)

	buf := &bytes.Buffer{}
	if err := Render(buf, []FamilySnapshot{hist.Snapshot()}); err != nil {
		t.Fatalf("Render returned error: %v.", err)
	}
	out := buf.String()

	for _, expected := range []string{
		"# TYPE op_seconds histogram\n",
		`op_seconds_bucket{le="0.5"} 1` + "\n",
		`op_seconds_bucket{le="1"} 2` + "\n",
		`op_seconds_bucket{le="+Inf"} 3` + "\n",
		"op_seconds_sum 5.9\n",
		"op_seconds_count 3\n",
	} {
		if !strings.Contains(out, expected) {
			t.Errorf("Output missing %q.\nGot:\n%s", expected, out)
		}
	}
}

func TestRenderSummary(t *testing.T) {
	sum := NewSummary(SummaryOpts{Name: "inf_seconds", Help: "h"})
	sum.SetQuantiles(nil, 10, 4.5, map[float64]float64{0.5: 0.4, 0.99: 1.2})

	buf := &bytes.Buffer{}
	if err := Render(buf, []FamilySnapshot{sum.Snapshot()}); err != nil {
		t.Fatalf("Render returned error: %v.", err)
	}
	out := buf.String()

	for _, expected := range []string{
		"# TYPE inf_seconds summary\n",
		`inf_seconds{quantile="0.5"} 0.4` + "\n",
		`inf_seconds{quantile="0.99"} 1.2` + "\n",
		"inf_seconds_sum 4.5\n",
		"inf_seconds_count 10\n",
	} {
		if !strings.Contains(out, expected) {
			t.Errorf("Output missing %q.\nGot:\n%s", expected, out)
		}
	}
}

func TestRenderEscaping(t *testing.T) {
	gauge := NewGauge(GaugeOpts{
		Name:   "m",
		Help:   "line one\nline two",
		Labels: []string{"path"},
	})
	gauge.Set(Labels{"path": `C:\temp "dir"`}, 1)

	buf := &bytes.Buffer{}
	if err := Render(buf, []FamilySnapshot{gauge.Snapshot()}); err != nil {
		t.Fatalf("Render returned error: %v.", err)
	}
	out := buf.String()

	if !strings.Contains(out, `# HELP m line one\nline two`) {
		t.Errorf("Help newline not escaped.\nGot:\n%s", out)
	}
	if !strings.Contains(out, `m{path="C:\\temp \"dir\""} 1`) {
		t.Errorf("Label value not escaped.\nGot:\n%s", out)
	}
}
