package metric

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Kind is the value semantic of a metric family.
type Kind int

// Possible values for the Kind enum.
const (
	_ Kind = iota
	KindGauge
	KindCounter
	KindHistogram
	KindSummary
)

func (k Kind) String() string {
	switch k {
	case KindGauge:
		return "gauge"
	case KindCounter:
		return "counter"
	case KindHistogram:
		return "histogram"
	case KindSummary:
		return "summary"
	default:
		return "unknown"
	}
}

var nameRe = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)

// Desc is the descriptor used by every metric family. It is essentially
// the immutable meta-data of a family: the process-unique name, the value
// kind, a help string and the ordered list of variable label names every
// sample of the family must carry.
//
// A Desc is built by the family constructors (NewGauge, NewCounter, ...).
// Construction problems are stored in err and reported at registration
// time, so misconfigured metrics fail the process at startup instead of
// silently serving garbage.
type Desc struct {
	// name is the family name, e.g. "cpu_temperature_celsius".
	name string
	// help provides some helpful information about this metric.
	help string
	// kind decides the exposition TYPE line and the write semantics.
	kind Kind
	// labelNames is the declared label order. Samples are matched with
	// unordered label maps but always rendered in this order.
	labelNames []string
	// id is a hash of the name. It must be unique among all registered
	// descriptors and is used as the identifier of the descriptor.
	id uint64
	// err is an error that occurred during construction. It is reported
	// on registration time.
	err error
}

// NewDesc returns a new Desc. The label names are the variable labels of
// the family; their cardinality is fixed, every sample must supply a value
// for exactly this set of names.
func NewDesc(name, help string, kind Kind, labelNames []string) *Desc {
	d := &Desc{
		name:       name,
		help:       help,
		kind:       kind,
		labelNames: labelNames,
	}

	if kind < KindGauge || kind > KindSummary {
		d.err = fmt.Errorf("descriptor %q has illegal kind %d", name, kind)
		return d
	}
	if !nameRe.MatchString(name) {
		d.err = fmt.Errorf("%q is not a valid metric name", name)
		return d
	}

	seen := map[string]struct{}{}
	for _, l := range labelNames {
		if !nameRe.MatchString(l) || strings.HasPrefix(l, "__") {
			d.err = fmt.Errorf("metric %q has invalid label name %q", name, l)
			return d
		}
		if _, ok := seen[l]; ok {
			d.err = fmt.Errorf("duplicate label name %q in metric %q", l, name)
			return d
		}
		seen[l] = struct{}{}
	}

	d.id = xxhash.Sum64String(name)
	return d
}

// Name returns the family name.
func (d *Desc) Name() string { return d.name }

// Help returns the help text.
func (d *Desc) Help() string { return d.help }

// Kind returns the value kind.
func (d *Desc) Kind() Kind { return d.kind }

// LabelNames returns the declared label order. The caller must not mutate
// the returned slice.
func (d *Desc) LabelNames() []string { return d.labelNames }

func (d *Desc) String() string {
	return fmt.Sprintf(
		"Desc{name: %q, kind: %s, help: %q, labelNames: %v}",
		d.name, d.kind, d.help, d.labelNames,
	)
}

// labelValues resolves an unordered label map against the declared label
// names and returns the values in declared order together with a hash
// identifying the child. Unknown or missing names are an UnknownLabelError.
func (d *Desc) labelValues(labels Labels) ([]string, uint64, error) {
	if len(labels) != len(d.labelNames) {
		// Find a concrete offender for the error message.
		for name := range labels {
			if !d.hasLabel(name) {
				return nil, 0, UnknownLabelError{Metric: d.name, Label: name}
			}
		}
		return nil, 0, UnknownLabelError{
			Metric: d.name,
			Label:  fmt.Sprintf("want %d labels, got %d", len(d.labelNames), len(labels)),
		}
	}

	values := make([]string, len(d.labelNames))
	for i, name := range d.labelNames {
		v, ok := labels[name]
		if !ok {
			return nil, 0, UnknownLabelError{Metric: d.name, Label: name}
		}
		values[i] = v
	}

	xxh := xxhash.New()
	for _, v := range values {
		xxh.WriteString(v)
		xxh.Write([]byte{0xff})
	}
	return values, xxh.Sum64(), nil
}

func (d *Desc) hasLabel(name string) bool {
	for _, l := range d.labelNames {
		if l == name {
			return true
		}
	}
	return false
}
