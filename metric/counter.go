package metric

import "sync"

// CounterOpts is an alias for Opts.
type CounterOpts Opts

// Counter is a family of samples whose values only ever increase (or reset
// to zero when the process restarts). Writers assert the non-decreasing
// invariant: Add with a negative delta fails with NegativeDeltaError and
// leaves the value untouched.
type Counter struct {
	desc *Desc

	mtx      sync.RWMutex
	children map[uint64]*counterChild
}

type counterChild struct {
	mtx         sync.RWMutex
	labelValues []string
	value       float64
}

// NewCounter creates a new Counter based on the provided CounterOpts.
func NewCounter(opts CounterOpts) *Counter {
	return &Counter{
		desc:     NewDesc(opts.Name, opts.Help, KindCounter, opts.Labels),
		children: map[uint64]*counterChild{},
	}
}

func (c *Counter) Desc() *Desc { return c.desc }

// Inc increments the sample identified by labels by 1.
func (c *Counter) Inc(labels Labels) error {
	return c.Add(labels, 1)
}

// Add adds the given delta to the sample. The delta must be non-negative.
func (c *Counter) Add(labels Labels, delta float64) error {
	if delta < 0 {
		return NegativeDeltaError{Metric: c.desc.name, Delta: delta}
	}
	child, err := c.child(labels)
	if err != nil {
		return err
	}
	child.mtx.Lock()
	child.value += delta
	child.mtx.Unlock()
	return nil
}

// Value returns the current value of the sample identified by labels.
func (c *Counter) Value(labels Labels) (float64, error) {
	child, err := c.child(labels)
	if err != nil {
		return 0, err
	}
	child.mtx.RLock()
	defer child.mtx.RUnlock()
	return child.value, nil
}

func (c *Counter) child(labels Labels) (*counterChild, error) {
	values, h, err := c.desc.labelValues(labels)
	if err != nil {
		return nil, err
	}

	c.mtx.RLock()
	child, ok := c.children[h]
	c.mtx.RUnlock()
	if ok {
		return child, nil
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()
	if child, ok = c.children[h]; ok {
		return child, nil
	}
	child = &counterChild{labelValues: values}
	c.children[h] = child
	return child, nil
}

func (c *Counter) Snapshot() FamilySnapshot {
	c.mtx.RLock()
	children := make([]*counterChild, 0, len(c.children))
	for _, child := range c.children {
		children = append(children, child)
	}
	c.mtx.RUnlock()

	samples := make([]Sample, 0, len(children))
	for _, child := range children {
		child.mtx.RLock()
		samples = append(samples, Sample{
			LabelValues: child.labelValues,
			Value:       child.value,
		})
		child.mtx.RUnlock()
	}
	return FamilySnapshot{
		Name:       c.desc.name,
		Help:       c.desc.help,
		Kind:       KindCounter,
		LabelNames: c.desc.labelNames,
		Samples:    samples,
	}
}
