package collectors

import (
	"context"
	"sync"
	"time"

	"github.com/bmizerany/perks/quantile"

	"github.com/cortezlab/pimetrics/metric"
)

// DefaultInferenceRanks are the quantile ranks estimated for the duration
// summary.
var DefaultInferenceRanks = []float64{0.5, 0.9, 0.99}

// InferenceOpts configures the inference workload collector.
type InferenceOpts struct {
	// Buckets are the duration histogram boundaries in seconds.
	Buckets []float64 `yaml:"buckets"`
	// Ranks are the summary quantile ranks. Empty means
	// DefaultInferenceRanks.
	Ranks []float64 `yaml:"ranks"`
}

// Inference records the timing of accelerator operations the application
// feeds it through Track. It owns a duration histogram, a gauge of
// concurrently active operations, and a quantile summary estimated with a
// targeted stream and refreshed once per tick.
//
// The collector never invents a data source: with no instrumented calls
// the histogram simply stays at zero observations. A duration is recorded
// even when the tracked operation itself fails — a slow failure is timing
// signal too.
type Inference struct {
	durations *metric.Histogram
	active    *metric.Gauge
	quantiles *metric.Summary

	ranks []float64

	mtx     sync.Mutex
	stream  *quantile.Stream
	count   uint64
	sum     float64
	running int64
}

// NewInference creates the collector and registers its families with reg.
func NewInference(reg *metric.Registry, opts InferenceOpts) (*Inference, error) {
	ranks := opts.Ranks
	if len(ranks) == 0 {
		ranks = DefaultInferenceRanks
	}
	c := &Inference{
		durations: metric.NewHistogram(metric.HistogramOpts{
			Opts: metric.Opts{
				Name: "inference_duration_seconds",
				Help: "Duration of tracked inference operations.",
			},
			Buckets: opts.Buckets,
		}),
		active: metric.NewGauge(metric.GaugeOpts{
			Name: "inference_active_operations",
			Help: "Inference operations currently in flight.",
		}),
		quantiles: metric.NewSummary(metric.SummaryOpts{
			Name: "inference_duration_quantiles_seconds",
			Help: "Estimated duration quantiles of tracked inference operations.",
		}),
		ranks:  ranks,
		stream: quantile.NewTargeted(ranks...),
	}

	var errs metric.MultiError
	errs.Append(reg.Register(c.durations))
	errs.Append(reg.Register(c.active))
	errs.Append(reg.Register(c.quantiles))
	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Inference) Name() string { return "inference" }

// Track marks the start of one operation and returns the function to call
// when it finishes. The returned done must be called exactly once; the
// operation's error (or nil) is accepted so call sites can write
//
//	done := inf.Track()
//	err := run()
//	done(err)
//
// and the duration is attributed whether or not err is nil.
func (c *Inference) Track() func(err error) {
	c.mtx.Lock()
	c.running++
	c.active.Set(nil, float64(c.running))
	c.mtx.Unlock()

	start := time.Now()
	var once sync.Once
	return func(error) {
		once.Do(func() {
			d := time.Since(start).Seconds()
			c.durations.Observe(nil, d)

			c.mtx.Lock()
			c.running--
			c.active.Set(nil, float64(c.running))
			c.stream.Insert(d)
			c.count++
			c.sum += d
			c.mtx.Unlock()
		})
	}
}

// Sample publishes the current quantile estimates. The histogram and the
// active gauge are written directly by Track; the tick only refreshes the
// summary.
func (c *Inference) Sample(ctx context.Context) error {
	c.mtx.Lock()
	qs := make(map[float64]float64, len(c.ranks))
	for _, r := range c.ranks {
		qs[r] = c.stream.Query(r)
	}
	count, sum := c.count, c.sum
	c.mtx.Unlock()

	return c.quantiles.SetQuantiles(nil, count, sum, qs)
}
