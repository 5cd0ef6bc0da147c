package metric

import (
	"sort"
	"sync"
)

// SummaryOpts is an alias for Opts.
type SummaryOpts Opts

// Summary is a family of precomputed quantile snapshots. Unlike Histogram
// it has no Observe method: the owning collector computes the quantiles
// itself (typically from a streaming estimator) and publishes the whole
// result with SetQuantiles on each tick. Sum and count are expected to be
// monotonically non-decreasing across calls, like a counter.
type Summary struct {
	desc *Desc

	mtx      sync.RWMutex
	children map[uint64]*summaryChild
}

type summaryChild struct {
	mtx         sync.RWMutex
	labelValues []string
	quantiles   []QuantileValue
	sum         float64
	count       uint64
}

// NewSummary creates a new Summary based on the provided SummaryOpts.
func NewSummary(opts SummaryOpts) *Summary {
	return &Summary{
		desc:     NewDesc(opts.Name, opts.Help, KindSummary, opts.Labels),
		children: map[uint64]*summaryChild{},
	}
}

func (s *Summary) Desc() *Desc { return s.desc }

// SetQuantiles replaces the sample identified by labels with the given
// count, sum and rank -> value estimates. The three parts are installed
// under one lock, so a concurrent snapshot never sees them half-updated.
func (s *Summary) SetQuantiles(labels Labels, count uint64, sum float64, quantiles map[float64]float64) error {
	c, err := s.child(labels)
	if err != nil {
		return err
	}

	qs := make([]QuantileValue, 0, len(quantiles))
	for rank, v := range quantiles {
		qs = append(qs, QuantileValue{Rank: rank, Value: v})
	}
	sort.Slice(qs, func(i, j int) bool { return qs[i].Rank < qs[j].Rank })

	c.mtx.Lock()
	c.quantiles = qs
	c.sum = sum
	c.count = count
	c.mtx.Unlock()
	return nil
}

func (s *Summary) child(labels Labels) (*summaryChild, error) {
	values, h, err := s.desc.labelValues(labels)
	if err != nil {
		return nil, err
	}

	s.mtx.RLock()
	c, ok := s.children[h]
	s.mtx.RUnlock()
	if ok {
		return c, nil
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	if c, ok = s.children[h]; ok {
		return c, nil
	}
	c = &summaryChild{labelValues: values}
	s.children[h] = c
	return c, nil
}

func (s *Summary) Snapshot() FamilySnapshot {
	s.mtx.RLock()
	children := make([]*summaryChild, 0, len(s.children))
	for _, c := range s.children {
		children = append(children, c)
	}
	s.mtx.RUnlock()

	samples := make([]Sample, 0, len(children))
	for _, c := range children {
		c.mtx.RLock()
		sv := &SummaryValue{
			Quantiles: append([]QuantileValue(nil), c.quantiles...),
			Sum:       c.sum,
			Count:     c.count,
		}
		c.mtx.RUnlock()
		samples = append(samples, Sample{
			LabelValues: c.labelValues,
			Summary:     sv,
		})
	}
	return FamilySnapshot{
		Name:       s.desc.name,
		Help:       s.desc.help,
		Kind:       KindSummary,
		LabelNames: s.desc.labelNames,
		Samples:    samples,
	}
}
