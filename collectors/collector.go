// Package collectors holds the sampling units of the exporter. Each
// collector owns a fixed set of metric families, created and registered at
// construction time, and exposes one operation: Sample. The schedule
// package drives Sample on the collector's own cadence; a failed tick is
// reported through the returned error and never takes down the process.
//
// No two collectors write the same family. The failure policy differs per
// collector and is documented on each type: hardware readers keep their
// previous value (stale beats misleading zero), the reachability prober
// writes an explicit sentinel because unreachability is the signal.
package collectors

import (
	"context"
	"fmt"
)

// Collector is the interface implemented by every sampling unit.
type Collector interface {
	// Name returns the collector's unique name, used in logs, health
	// reporting and the scheduler's own metrics.
	Name() string

	// Sample reads the collector's sources and writes the results into
	// its metric families. It must honor ctx cancellation at its I/O
	// boundaries. A returned error marks the whole tick as failed; the
	// collector decides per family whether values went stale or were
	// set to a sentinel.
	Sample(ctx context.Context) error
}

// SamplingError wraps a per-tick failure with the collector's name. The
// schedule loop logs it and carries on; it is never fatal.
type SamplingError struct {
	Collector string
	Err       error
}

func (e *SamplingError) Error() string {
	return fmt.Sprintf("collector %s: %v", e.Collector, e.Err)
}

func (e *SamplingError) Unwrap() error { return e.Err }
