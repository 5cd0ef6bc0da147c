package metric

import "sync"

// GaugeOpts is an alias for Opts.
type GaugeOpts Opts

// Gauge is a family of samples whose values can move up and down freely;
// the latest write wins.
//
// The family keeps one child per distinct label-value assignment, created
// lazily on first write. Each child carries its own lock, so setting one
// target's latency never contends with setting another's, nor with a
// concurrent snapshot of unrelated children.
type Gauge struct {
	desc *Desc

	mtx      sync.RWMutex
	children map[uint64]*gaugeChild
}

type gaugeChild struct {
	mtx         sync.RWMutex
	labelValues []string
	value       float64
}

// NewGauge creates a new Gauge based on the provided GaugeOpts. Option
// problems are carried in the descriptor and surface at registration.
func NewGauge(opts GaugeOpts) *Gauge {
	return &Gauge{
		desc:     NewDesc(opts.Name, opts.Help, KindGauge, opts.Labels),
		children: map[uint64]*gaugeChild{},
	}
}

func (g *Gauge) Desc() *Desc { return g.desc }

// Set sets the sample identified by labels to an arbitrary value.
func (g *Gauge) Set(labels Labels, v float64) error {
	c, err := g.child(labels)
	if err != nil {
		return err
	}
	c.mtx.Lock()
	c.value = v
	c.mtx.Unlock()
	return nil
}

// Add adds the given value to the sample. (The value can be negative,
// resulting in a decrease of the gauge.)
func (g *Gauge) Add(labels Labels, v float64) error {
	c, err := g.child(labels)
	if err != nil {
		return err
	}
	c.mtx.Lock()
	c.value += v
	c.mtx.Unlock()
	return nil
}

// Sub subtracts the given value from the sample.
func (g *Gauge) Sub(labels Labels, v float64) error {
	return g.Add(labels, -v)
}

// Value returns the current value of the sample identified by labels.
// A sample that has never been written reads as 0 and is created.
func (g *Gauge) Value(labels Labels) (float64, error) {
	c, err := g.child(labels)
	if err != nil {
		return 0, err
	}
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.value, nil
}

func (g *Gauge) child(labels Labels) (*gaugeChild, error) {
	values, h, err := g.desc.labelValues(labels)
	if err != nil {
		return nil, err
	}

	g.mtx.RLock()
	c, ok := g.children[h]
	g.mtx.RUnlock()
	if ok {
		return c, nil
	}

	g.mtx.Lock()
	defer g.mtx.Unlock()
	if c, ok = g.children[h]; ok {
		return c, nil
	}
	c = &gaugeChild{labelValues: values}
	g.children[h] = c
	return c, nil
}

func (g *Gauge) Snapshot() FamilySnapshot {
	g.mtx.RLock()
	children := make([]*gaugeChild, 0, len(g.children))
	for _, c := range g.children {
		children = append(children, c)
	}
	g.mtx.RUnlock()

	samples := make([]Sample, 0, len(children))
	for _, c := range children {
		c.mtx.RLock()
		samples = append(samples, Sample{
			LabelValues: c.labelValues,
			Value:       c.value,
		})
		c.mtx.RUnlock()
	}
	return FamilySnapshot{
		Name:       g.desc.name,
		Help:       g.desc.help,
		Kind:       KindGauge,
		LabelNames: g.desc.labelNames,
		Samples:    samples,
	}
}
