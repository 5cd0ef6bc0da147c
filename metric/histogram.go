package metric

import (
	"fmt"
	"sort"
	"sync"
)

// DefBuckets are the default histogram boundaries, covering the usual
// sub-second to low-second operation latencies in seconds.
var DefBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// HistogramOpts bundles the options for creating a Histogram. Buckets are
// the upper boundaries, in ascending order; the +Inf bucket is implicit
// and must not be declared. A nil Buckets falls back to DefBuckets.
type HistogramOpts struct {
	Opts    `yaml:",inline"`
	Buckets []float64 `yaml:"buckets"`
}

// Histogram is a family of samples recording cumulative counts of
// observations at or below each of a set of boundaries, plus a running sum
// and count. An observation increments exactly one internal bucket; the
// bucket counts, sum and count of a child are updated under one lock, so a
// concurrent snapshot never sees a torn triple.
type Histogram struct {
	desc   *Desc
	bounds []float64

	mtx      sync.RWMutex
	children map[uint64]*histogramChild
}

type histogramChild struct {
	mtx         sync.Mutex
	labelValues []string
	// counts is per-bucket (not cumulative); the last element is +Inf.
	counts []uint64
	sum    float64
	count  uint64
}

// NewHistogram creates a new Histogram based on the provided HistogramOpts.
func NewHistogram(opts HistogramOpts) *Histogram {
	bounds := opts.Buckets
	if bounds == nil {
		bounds = DefBuckets
	}
	desc := NewDesc(opts.Name, opts.Help, KindHistogram, opts.Labels)
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			if desc.err == nil {
				desc.err = fmt.Errorf(
					"histogram %q buckets must be in strictly ascending order, got %v",
					opts.Name, bounds,
				)
			}
		}
	}
	return &Histogram{
		desc:     desc,
		bounds:   bounds,
		children: map[uint64]*histogramChild{},
	}
}

func (h *Histogram) Desc() *Desc { return h.desc }

// Observe records one observation in the sample identified by labels. The
// observation lands in the first bucket whose boundary is >= v, or in the
// implicit +Inf bucket when v exceeds every boundary.
func (h *Histogram) Observe(labels Labels, v float64) error {
	c, err := h.child(labels)
	if err != nil {
		return err
	}
	i := sort.SearchFloat64s(h.bounds, v)
	c.mtx.Lock()
	c.counts[i]++
	c.sum += v
	c.count++
	c.mtx.Unlock()
	return nil
}

func (h *Histogram) child(labels Labels) (*histogramChild, error) {
	values, hash, err := h.desc.labelValues(labels)
	if err != nil {
		return nil, err
	}

	h.mtx.RLock()
	c, ok := h.children[hash]
	h.mtx.RUnlock()
	if ok {
		return c, nil
	}

	h.mtx.Lock()
	defer h.mtx.Unlock()
	if c, ok = h.children[hash]; ok {
		return c, nil
	}
	c = &histogramChild{
		labelValues: values,
		counts:      make([]uint64, len(h.bounds)+1),
	}
	h.children[hash] = c
	return c, nil
}

func (h *Histogram) Snapshot() FamilySnapshot {
	h.mtx.RLock()
	children := make([]*histogramChild, 0, len(h.children))
	for _, c := range h.children {
		children = append(children, c)
	}
	h.mtx.RUnlock()

	samples := make([]Sample, 0, len(children))
	for _, c := range children {
		c.mtx.Lock()
		hv := &HistogramValue{
			Bounds: h.bounds,
			Counts: make([]uint64, len(h.bounds)),
			Sum:    c.sum,
			Count:  c.count,
		}
		var cum uint64
		for i := range h.bounds {
			cum += c.counts[i]
			hv.Counts[i] = cum
		}
		c.mtx.Unlock()
		samples = append(samples, Sample{
			LabelValues: c.labelValues,
			Histogram:   hv,
		})
	}
	return FamilySnapshot{
		Name:       h.desc.name,
		Help:       h.desc.help,
		Kind:       KindHistogram,
		LabelNames: h.desc.labelNames,
		Samples:    samples,
	}
}
