// Package schedule runs each collector on its own cadence. One goroutine
// per collector gives the isolation contract for free: a slow or blocked
// sample call delays nothing but its own collector, and a failed tick is
// logged, counted and forgotten by the next one.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/cortezlab/pimetrics/collectors"
	"github.com/cortezlab/pimetrics/metric"
)

const (
	// DefaultInterval is the sampling cadence when none is configured.
	DefaultInterval = 15 * time.Second
	// DefaultTimeout bounds one sample call when none is configured.
	DefaultTimeout = 10 * time.Second
)

// Options set the cadence of one collector.
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
}

type entry struct {
	collector collectors.Collector
	interval  time.Duration
	timeout   time.Duration
	health    *Health

	// inflight is true while a sample call that outlived its timeout has
	// still not returned. Ticks are skipped until it does, so sample
	// calls of one collector never overlap.
	mtx      sync.Mutex
	inflight bool
}

// Scheduler drives a set of collectors. Add every collector before calling
// Run; the set is fixed afterwards.
type Scheduler struct {
	entries []*entry

	runsTotal     *metric.Counter
	failuresTotal *metric.Counter
	lastRunStamp  *metric.Gauge
}

// New creates a Scheduler and registers its own bookkeeping metrics with
// reg.
func New(reg *metric.Registry) (*Scheduler, error) {
	s := &Scheduler{
		runsTotal: metric.NewCounter(metric.CounterOpts{
			Name:   "collector_runs_total",
			Help:   "Sampling attempts per collector.",
			Labels: []string{"collector"},
		}),
		failuresTotal: metric.NewCounter(metric.CounterOpts{
			Name:   "collector_failures_total",
			Help:   "Failed sampling attempts per collector.",
			Labels: []string{"collector"},
		}),
		lastRunStamp: metric.NewGauge(metric.GaugeOpts{
			Name:   "collector_last_run_timestamp_seconds",
			Help:   "Unix time of the last sampling attempt per collector.",
			Labels: []string{"collector"},
		}),
	}
	var errs metric.MultiError
	errs.Append(reg.Register(s.runsTotal))
	errs.Append(reg.Register(s.failuresTotal))
	errs.Append(reg.Register(s.lastRunStamp))
	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return s, nil
}

// Add schedules c with the given options and returns its health record.
// Zero option fields fall back to the defaults.
func (s *Scheduler) Add(c collectors.Collector, opts Options) *Health {
	e := &entry{
		collector: c,
		interval:  opts.Interval,
		timeout:   opts.Timeout,
		health:    &Health{},
	}
	if e.interval <= 0 {
		e.interval = DefaultInterval
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	s.entries = append(s.entries, e)
	return e.health
}

// Healths returns a copy of every collector's health record, keyed by
// collector name.
func (s *Scheduler) Healths() map[string]HealthView {
	views := make(map[string]HealthView, len(s.entries))
	for _, e := range s.entries {
		views[e.collector.Name()] = e.health.View()
	}
	return views
}

// Run blocks until ctx is cancelled, sampling every collector on its own
// interval. Each collector samples once immediately so the first scrape
// after startup is not empty.
func (s *Scheduler) Run(ctx context.Context) {
	wg := new(sync.WaitGroup)
	for _, e := range s.entries {
		wg.Add(1)
		go func(e *entry) {
			defer wg.Done()
			s.loop(ctx, e)
		}(e)
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	s.tick(ctx, e)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, e)
		}
	}
}

// tick runs one sampling attempt. The timeout is enforced two ways: the
// context aborts cooperative I/O inside the collector, and the select
// below stops waiting for collectors that ignore it, marking the entry
// inflight so the next ticks are skipped instead of overlapping.
func (s *Scheduler) tick(ctx context.Context, e *entry) {
	name := e.collector.Name()
	now := time.Now()

	e.mtx.Lock()
	if e.inflight {
		e.mtx.Unlock()
		s.recordFailure(e, name, now, errors.New("previous sample call still in flight"))
		return
	}
	e.mtx.Unlock()

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- e.collector.Sample(cctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.recordFailure(e, name, now, err)
			return
		}
		e.health.recordSuccess(now)
		s.runsTotal.Inc(metric.Labels{"collector": name})
		s.lastRunStamp.Set(metric.Labels{"collector": name}, float64(now.Unix()))
		glog.V(2).Infof("collector %s sampled ok", name)

	case <-cctx.Done():
		if ctx.Err() != nil {
			// Shutdown, not a collector fault. The in-flight call is
			// abandoned; its own I/O timeout bounds it.
			return
		}
		e.mtx.Lock()
		e.inflight = true
		e.mtx.Unlock()
		go func() {
			<-done
			e.mtx.Lock()
			e.inflight = false
			e.mtx.Unlock()
		}()
		s.recordFailure(e, name, now, errors.Errorf("sample timed out after %s", e.timeout))
	}
}

func (s *Scheduler) recordFailure(e *entry, name string, now time.Time, err error) {
	err = &collectors.SamplingError{Collector: name, Err: err}
	e.health.recordFailure(now, err)
	s.runsTotal.Inc(metric.Labels{"collector": name})
	s.failuresTotal.Inc(metric.Labels{"collector": name})
	s.lastRunStamp.Set(metric.Labels{"collector": name}, float64(now.Unix()))
	glog.Warning(err)
}
