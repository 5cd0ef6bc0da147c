package collectors

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/cortezlab/pimetrics/metric"
)

// DefaultThermalZone is the sysfs file the thermal collector reads first.
const DefaultThermalZone = "/sys/class/thermal/thermal_zone0/temp"

// ThermalOpts configures the thermal collector.
type ThermalOpts struct {
	// SensorPath is the sysfs thermal zone file, millidegrees celsius.
	// Empty means DefaultThermalZone.
	SensorPath string `yaml:"sensorPath"`
}

// Thermal samples the SoC temperature. It tries the sysfs thermal zone
// first, then `vcgencmd measure_temp`, then the gopsutil host sensors.
//
// Failure policy: on a failed read the previous gauge value is left
// unchanged. A scrape seeing last tick's temperature is preferable to a
// misleading zero; the failure itself is visible through the collector's
// health record and the scheduler's failure counter.
type Thermal struct {
	sensorPath string
	run        runCommand

	temp *metric.Gauge
}

// NewThermal creates the collector and registers its family with reg.
func NewThermal(reg *metric.Registry, opts ThermalOpts) (*Thermal, error) {
	t := &Thermal{
		sensorPath: opts.SensorPath,
		run:        execCommand,
		temp: metric.NewGauge(metric.GaugeOpts{
			Name: "cpu_temperature_celsius",
			Help: "SoC temperature in degrees celsius. Keeps its last value while the sensor is unreadable.",
		}),
	}
	if t.sensorPath == "" {
		t.sensorPath = DefaultThermalZone
	}
	if err := reg.Register(t.temp); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Thermal) Name() string { return "thermal" }

func (t *Thermal) Sample(ctx context.Context) error {
	v, err := t.read(ctx)
	if err != nil {
		// Stale-but-valid: do not touch the gauge.
		return err
	}
	return t.temp.Set(nil, v)
}

func (t *Thermal) read(ctx context.Context) (float64, error) {
	var errs metric.MultiError

	v, err := readThermalZone(t.sensorPath)
	if err == nil {
		return v, nil
	}
	errs.Append(err)

	out, err := t.run(ctx, "vcgencmd", "measure_temp")
	if err == nil {
		v, err = parseTemp(out)
		if err == nil {
			return v, nil
		}
	}
	errs.Append(err)

	v, err = hostSensorTemp(ctx)
	if err == nil {
		return v, nil
	}
	errs.Append(err)

	return 0, errors.Wrap(errs.OrNil(), "no readable temperature source")
}

// readThermalZone parses a sysfs thermal zone file, which holds the
// temperature in millidegrees, e.g. "48300".
func readThermalZone(path string) (float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrap(err, "reading thermal zone")
	}
	milli, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "unparsable thermal zone content %q", strings.TrimSpace(string(raw)))
	}
	return float64(milli) / 1000, nil
}

// hostSensorTemp returns the hottest CPU-ish sensor gopsutil can find.
func hostSensorTemp(ctx context.Context) (float64, error) {
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "host sensors")
	}
	var (
		max   float64
		found bool
	)
	for _, s := range temps {
		key := strings.ToLower(s.SensorKey)
		if !strings.Contains(key, "cpu") && !strings.Contains(key, "core") && !strings.Contains(key, "soc") {
			continue
		}
		if s.Temperature <= 0 || s.Temperature > 150 {
			continue
		}
		if !found || s.Temperature > max {
			max = s.Temperature
			found = true
		}
	}
	if !found {
		return 0, errors.New("no cpu temperature sensor found")
	}
	return max, nil
}
