package collectors

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/cortezlab/pimetrics/metric"
)

// System samples the coarse host vitals: CPU busy percentage, memory used
// percentage, the 1-minute load average and the uptime. Sub-reads fail
// independently; whatever could be read is still written and the failures
// are reported together.
type System struct {
	cpuBusy *metric.Gauge
	memUsed *metric.Gauge
	load1   *metric.Gauge
	uptime  *metric.Gauge
}

// NewSystem creates the collector and registers its families with reg.
func NewSystem(reg *metric.Registry) (*System, error) {
	s := &System{
		cpuBusy: metric.NewGauge(metric.GaugeOpts{
			Name: "cpu_busy_percent",
			Help: "CPU busy percentage since the previous tick.",
		}),
		memUsed: metric.NewGauge(metric.GaugeOpts{
			Name: "memory_used_percent",
			Help: "Used physical memory percentage.",
		}),
		load1: metric.NewGauge(metric.GaugeOpts{
			Name: "load_average_1m",
			Help: "1-minute load average.",
		}),
		uptime: metric.NewGauge(metric.GaugeOpts{
			Name: "uptime_seconds",
			Help: "Host uptime in seconds.",
		}),
	}
	var errs metric.MultiError
	errs.Append(reg.Register(s.cpuBusy))
	errs.Append(reg.Register(s.memUsed))
	errs.Append(reg.Register(s.load1))
	errs.Append(reg.Register(s.uptime))
	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *System) Name() string { return "system" }

func (s *System) Sample(ctx context.Context) error {
	var errs metric.MultiError

	// interval 0 measures against the previous call, i.e. one tick.
	if pcts, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		errs.Append(err)
	} else if len(pcts) > 0 {
		errs.Append(s.cpuBusy.Set(nil, pcts[0]))
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		errs.Append(err)
	} else {
		errs.Append(s.memUsed.Set(nil, vm.UsedPercent))
	}

	if avg, err := load.AvgWithContext(ctx); err != nil {
		errs.Append(err)
	} else {
		errs.Append(s.load1.Set(nil, avg.Load1))
	}

	if up, err := host.UptimeWithContext(ctx); err != nil {
		errs.Append(err)
	} else {
		errs.Append(s.uptime.Set(nil, float64(up)))
	}

	return errs.OrNil()
}
