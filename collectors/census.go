package collectors

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/cortezlab/pimetrics/metric"
)

// CensusOpts configures the process census collector.
type CensusOpts struct {
	// Keywords are matched case-insensitively against each process's
	// command line.
	Keywords []string `yaml:"keywords"`
}

// Census counts running processes whose command line contains each of a
// keyword set. A process that exits between enumeration and inspection is
// skipped, never fatal to the tick: racing the process table is normal,
// the census is a point-in-time estimate by construction.
type Census struct {
	keywords []string

	// cmdlines is swappable for tests; the default walks the live
	// process table via gopsutil.
	cmdlines func(ctx context.Context) ([]string, error)

	matches *metric.Gauge
	total   *metric.Gauge
}

// NewCensus creates the collector and registers its families with reg.
func NewCensus(reg *metric.Registry, opts CensusOpts) (*Census, error) {
	c := &Census{
		keywords: make([]string, 0, len(opts.Keywords)),
		matches: metric.NewGauge(metric.GaugeOpts{
			Name:   "process_census",
			Help:   "Running processes whose command line matches the keyword.",
			Labels: []string{"keyword"},
		}),
		total: metric.NewGauge(metric.GaugeOpts{
			Name: "processes_total",
			Help: "Total running processes at the last census.",
		}),
	}
	for _, kw := range opts.Keywords {
		c.keywords = append(c.keywords, strings.ToLower(kw))
	}
	c.cmdlines = liveCmdlines

	var errs metric.MultiError
	errs.Append(reg.Register(c.matches))
	errs.Append(reg.Register(c.total))
	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Census) Name() string { return "census" }

func (c *Census) Sample(ctx context.Context) error {
	lines, err := c.cmdlines(ctx)
	if err != nil {
		return err
	}

	counts := make(map[string]int, len(c.keywords))
	for _, line := range lines {
		low := strings.ToLower(line)
		for _, kw := range c.keywords {
			if strings.Contains(low, kw) {
				counts[kw]++
			}
		}
	}

	var errs metric.MultiError
	errs.Append(c.total.Set(nil, float64(len(lines))))
	for _, kw := range c.keywords {
		errs.Append(c.matches.Set(metric.Labels{"keyword": kw}, float64(counts[kw])))
	}
	return errs.OrNil()
}

// liveCmdlines returns the command line of every currently running
// process. Per-process errors are skipped: a pid picked up during
// enumeration may be gone by inspection time.
func liveCmdlines(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing processes")
	}
	lines := make([]string, 0, len(procs))
	for _, p := range procs {
		line, err := p.CmdlineWithContext(ctx)
		if err != nil {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}
