package collectors

import (
	"context"
	"fmt"

	"github.com/cortezlab/pimetrics/metric"
)

// throttleFlags maps the documented bits of the firmware throttle mask.
// Bits 0-3 describe the current state, bits 16-19 whether the condition
// has occurred since boot.
var throttleFlags = []struct {
	bit  uint
	name string
}{
	{0, "under_voltage"},
	{1, "freq_capped"},
	{2, "throttled"},
	{3, "soft_temp_limit"},
	{16, "under_voltage_occurred"},
	{17, "freq_capped_occurred"},
	{18, "throttled_occurred"},
	{19, "soft_temp_limit_occurred"},
}

// defaultVoltageRails are the rails `vcgencmd measure_volts` knows about.
var defaultVoltageRails = []string{"core", "sdram_c", "sdram_i", "sdram_p"}

// ThrottleOpts configures the throttle/voltage collector.
type ThrottleOpts struct {
	// Rails overrides the voltage rails to sample. Empty means all four
	// defaults.
	Rails []string `yaml:"rails"`
}

// Throttle samples the firmware throttle mask and the supply voltages. An
// unparsable tool output is a sampling failure for that sub-read, not a
// fatal error; whatever parsed is still written. Gauges keep their last
// value on failure.
type Throttle struct {
	rails []string
	run   runCommand

	state   *metric.Gauge
	flags   *metric.Gauge
	voltage *metric.Gauge
}

// NewThrottle creates the collector and registers its families with reg.
func NewThrottle(reg *metric.Registry, opts ThrottleOpts) (*Throttle, error) {
	t := &Throttle{
		rails: opts.Rails,
		run:   execCommand,
		state: metric.NewGauge(metric.GaugeOpts{
			Name: "throttle_state",
			Help: "Raw firmware throttle mask as an integer.",
		}),
		flags: metric.NewGauge(metric.GaugeOpts{
			Name:   "throttle_flag",
			Help:   "Individual throttle mask bits, 1 when set.",
			Labels: []string{"flag"},
		}),
		voltage: metric.NewGauge(metric.GaugeOpts{
			Name:   "supply_voltage_volts",
			Help:   "Supply voltage per rail.",
			Labels: []string{"rail"},
		}),
	}
	if len(t.rails) == 0 {
		t.rails = defaultVoltageRails
	}
	var errs metric.MultiError
	errs.Append(reg.Register(t.state))
	errs.Append(reg.Register(t.flags))
	errs.Append(reg.Register(t.voltage))
	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Throttle) Name() string { return "throttle" }

func (t *Throttle) Sample(ctx context.Context) error {
	var errs metric.MultiError
	errs.Append(t.sampleMask(ctx))
	for _, rail := range t.rails {
		errs.Append(t.sampleVoltage(ctx, rail))
	}
	return errs.OrNil()
}

func (t *Throttle) sampleMask(ctx context.Context) error {
	out, err := t.run(ctx, "vcgencmd", "get_throttled")
	if err != nil {
		return err
	}
	mask, err := parseThrottled(out)
	if err != nil {
		return err
	}

	if err := t.state.Set(nil, float64(mask)); err != nil {
		return err
	}
	for _, f := range throttleFlags {
		v := 0.0
		if mask&(1<<f.bit) != 0 {
			v = 1
		}
		if err := t.flags.Set(metric.Labels{"flag": f.name}, v); err != nil {
			return err
		}
	}
	return nil
}

func (t *Throttle) sampleVoltage(ctx context.Context, rail string) error {
	out, err := t.run(ctx, "vcgencmd", "measure_volts", rail)
	if err != nil {
		return fmt.Errorf("rail %s: %w", rail, err)
	}
	v, err := parseVolts(out)
	if err != nil {
		return fmt.Errorf("rail %s: %w", rail, err)
	}
	return t.voltage.Set(metric.Labels{"rail": rail}, v)
}
