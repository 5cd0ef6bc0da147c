package metric

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
)

// MultiError is a slice of errors implementing the error interface. It is
// used to report several independent failures from one operation, e.g. the
// partial failures of a collector tick.
type MultiError []error

func (errs MultiError) Error() string {
	if len(errs) == 0 {
		return ""
	}
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "%d error(s) occurred:", len(errs))
	for _, err := range errs {
		fmt.Fprintf(buf, "\n\t* %s", err)
	}
	return buf.String()
}

// Append appends err if it is non-nil.
func (errs *MultiError) Append(err error) {
	if err != nil {
		*errs = append(*errs, err)
	}
}

// OrNil returns the MultiError as a plain error, or nil if it is empty.
// Returning a typed nil slice as error would never compare equal to nil.
func (errs MultiError) OrNil() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Registry is the process-wide collection of metric families. It is
// created explicitly with NewRegistry and handed to every collector and to
// the exposition server; there is no package-global instance.
//
// Families are registered once at process start and live for the process
// lifetime. After startup the registry itself is read-mostly: collectors
// write through the family handles they hold, the registry lock is only
// taken to look up the family set for a snapshot.
type Registry struct {
	mtx          sync.RWMutex
	familiesByID map[uint64]Family
}

// NewRegistry creates a new, empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		familiesByID: map[uint64]Family{},
	}
}

// Register adds a family to the registry. It returns the descriptor's
// construction error if the family is misconfigured, and a
// DuplicateMetricNameError if a family with the same name exists already —
// whether with the same kind or a different one. Both cases are fatal
// configuration errors at startup; Register is not meant to be retried.
func (r *Registry) Register(f Family) error {
	desc := f.Desc()
	if desc.err != nil {
		return fmt.Errorf("descriptor %s is invalid: %w", desc, desc.err)
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	if existing, ok := r.familiesByID[desc.id]; ok {
		return DuplicateMetricNameError{
			Name:     desc.name,
			Existing: existing.Desc().kind,
			New:      desc.kind,
		}
	}
	r.familiesByID[desc.id] = f
	return nil
}

// MustRegister registers the given families and panics on the first error.
// It is meant for wiring code that treats a registration failure as a
// programming mistake; configuration-driven paths should use Register.
func (r *Registry) MustRegister(fs ...Family) {
	for _, f := range fs {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
}

// Snapshot returns the current state of every registered family, sorted
// lexicographically by name. It is safe to call concurrently with any
// number of in-flight writes; each sample is copied under its own lock, so
// the result is fully consistent per sample at some instant, though two
// samples may straddle a collector tick.
func (r *Registry) Snapshot() []FamilySnapshot {
	r.mtx.RLock()
	families := make([]Family, 0, len(r.familiesByID))
	for _, f := range r.familiesByID {
		families = append(families, f)
	}
	r.mtx.RUnlock()

	snaps := make([]FamilySnapshot, 0, len(families))
	for _, f := range families {
		snaps = append(snaps, f.Snapshot())
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Name < snaps[j].Name })
	return snaps
}
