package metric

// This file holds the snapshot value types the families hand to the
// Registry. They are plain data: a snapshot taken from a family is never
// written back, the exposition layer only reads it.

// Family is the interface implemented by every metric instrument that can
// be registered with a Registry.
//
// Snapshot may be called concurrently with any number of in-flight writes
// and must return values that were fully consistent at some instant. The
// implementations in this package lock per child, so a snapshot of one
// family never blocks writers of another.
type Family interface {
	// Desc returns the descriptor for the family. This method returns the
	// same immutable descriptor throughout the lifetime of the family.
	Desc() *Desc
	// Snapshot returns the current state of every labeled sample of the
	// family. The order of samples is unspecified.
	Snapshot() FamilySnapshot
}

// Opts bundles the options for creating most family types. Each family
// constructor XXX has its own XXXOpts type, but in most cases it is just an
// alias of this type.
//
// It is mandatory to set Name to a non-empty string. Labels declares the
// variable label names; leave it nil for a single-sample family.
type Opts struct {
	Name   string   `yaml:"name"`
	Help   string   `yaml:"help"`
	Labels []string `yaml:"labels"`
}

// FamilySnapshot is the read-only state of one family at some instant.
// LabelNames is the declared label order; every sample's LabelValues is
// parallel to it.
type FamilySnapshot struct {
	Name       string
	Help       string
	Kind       Kind
	LabelNames []string
	Samples    []Sample
}

// Sample is one labeled value of a family. LabelValues is parallel to the
// descriptor's declared label names. Exactly one of the value fields is
// meaningful, selected by the family kind.
type Sample struct {
	LabelValues []string

	// Value holds the current value for gauges and counters.
	Value float64

	Histogram *HistogramValue
	Summary   *SummaryValue
}

// HistogramValue is a consistent copy of one histogram sample. Buckets are
// cumulative: Counts[i] includes every observation at or below Bounds[i].
// Count is the implicit +Inf bucket and equals the total observation count.
type HistogramValue struct {
	Bounds []float64
	Counts []uint64
	Sum    float64
	Count  uint64
}

// SummaryValue is a consistent copy of one summary sample.
type SummaryValue struct {
	Quantiles []QuantileValue
	Sum       float64
	Count     uint64
}

// QuantileValue is one rank/value pair of a summary.
type QuantileValue struct {
	Rank  float64
	Value float64
}
