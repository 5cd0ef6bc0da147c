package metric

import "fmt"

// DuplicateMetricNameError is returned by Registry.Register when a family
// with the same name has been registered before. Registration is a startup
// concern, so callers are expected to treat this as fatal configuration.
// Existing and New carry the kinds of the two descriptors; a kind mismatch
// is the more serious variant of the same mistake.
type DuplicateMetricNameError struct {
	Name     string
	Existing Kind
	New      Kind
}

func (e DuplicateMetricNameError) Error() string {
	if e.Existing != e.New {
		return fmt.Sprintf(
			"metric name %q already registered as %s, cannot re-register as %s",
			e.Name, e.Existing, e.New,
		)
	}
	return fmt.Sprintf("metric name %q already registered", e.Name)
}

// UnknownLabelError is returned by the writer methods when the supplied
// label set does not match the declared label names of the family.
type UnknownLabelError struct {
	Metric string
	Label  string
}

func (e UnknownLabelError) Error() string {
	return fmt.Sprintf("metric %q: unknown label %s", e.Metric, e.Label)
}

// NegativeDeltaError is returned by Counter.Add when the delta would make
// the counter decrease.
type NegativeDeltaError struct {
	Metric string
	Delta  float64
}

func (e NegativeDeltaError) Error() string {
	return fmt.Sprintf("metric %q: counter delta %v is negative", e.Metric, e.Delta)
}
