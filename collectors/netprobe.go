package collectors

import (
	"context"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/cortezlab/pimetrics/metric"
)

// LatencySentinelMS is written to the latency gauge when a target does not
// answer within the timeout. It is distinct from any plausible real
// measurement so the consuming collector can alert on it directly.
const LatencySentinelMS = 9999

// DefaultProbeTimeout bounds a single reachability probe.
const DefaultProbeTimeout = 3 * time.Second

// NetProbeOpts configures the reachability collector.
type NetProbeOpts struct {
	// Targets are the hosts to probe, one probe per host per tick.
	Targets []string `yaml:"targets"`
	// Timeout bounds each probe. Zero means DefaultProbeTimeout.
	Timeout time.Duration `yaml:"-"`
	// Privileged selects raw ICMP sockets instead of UDP ping. Raw
	// sockets need CAP_NET_RAW; the UDP fallback works unprivileged on
	// most Linux hosts.
	Privileged bool `yaml:"privileged"`
}

// NetProbe samples round-trip latency to a fixed target set.
//
// Failure policy: a timed-out or failed probe sets that target's gauge to
// LatencySentinelMS instead of leaving it stale — reachability failure is
// itself the signal of interest, and yesterday's latency would mask it. An
// unreachable target is therefore recorded data, not a sampling error; the
// tick only fails when a probe cannot even be constructed.
type NetProbe struct {
	targets    []string
	timeout    time.Duration
	privileged bool

	// probe is swappable for tests.
	probe func(ctx context.Context, target string) (time.Duration, error)

	latency  *metric.Gauge
	failures *metric.Counter
}

// NewNetProbe creates the collector and registers its families with reg.
func NewNetProbe(reg *metric.Registry, opts NetProbeOpts) (*NetProbe, error) {
	n := &NetProbe{
		targets:    opts.Targets,
		timeout:    opts.Timeout,
		privileged: opts.Privileged,
		latency: metric.NewGauge(metric.GaugeOpts{
			Name:   "network_latency_ms",
			Help:   "Round-trip time per target in milliseconds; 9999 when unreachable.",
			Labels: []string{"target"},
		}),
		failures: metric.NewCounter(metric.CounterOpts{
			Name:   "network_probe_failures_total",
			Help:   "Probes that timed out or errored, per target.",
			Labels: []string{"target"},
		}),
	}
	if n.timeout <= 0 {
		n.timeout = DefaultProbeTimeout
	}
	n.probe = n.icmpProbe

	var errs metric.MultiError
	errs.Append(reg.Register(n.latency))
	errs.Append(reg.Register(n.failures))
	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *NetProbe) Name() string { return "netprobe" }

func (n *NetProbe) Sample(ctx context.Context) error {
	for _, target := range n.targets {
		labels := metric.Labels{"target": target}
		rtt, err := n.probe(ctx, target)
		if err != nil {
			if err := n.latency.Set(labels, LatencySentinelMS); err != nil {
				return err
			}
			if err := n.failures.Inc(labels); err != nil {
				return err
			}
			continue
		}
		if err := n.latency.Set(labels, float64(rtt)/float64(time.Millisecond)); err != nil {
			return err
		}
	}
	return nil
}

func (n *NetProbe) icmpProbe(ctx context.Context, target string) (time.Duration, error) {
	pinger, err := probing.NewPinger(target)
	if err != nil {
		return 0, err
	}
	pinger.Count = 1
	pinger.Timeout = n.timeout
	pinger.SetPrivileged(n.privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		return 0, err
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, context.DeadlineExceeded
	}
	return stats.AvgRtt, nil
}
