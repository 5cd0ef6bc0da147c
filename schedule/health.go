package schedule

import (
	"sync"
	"time"
)

// Health records the outcome of sampling attempts for one collector. It is
// created when the collector is added, updated after every attempt, and
// never removed while the process runs. The schedule loop is the only
// writer; anything else (the /healthz handler) gets a read-only View.
type Health struct {
	mtx                 sync.Mutex
	lastRun             time.Time
	lastErr             error
	consecutiveFailures int
}

// HealthView is a copy of one collector's health, safe to hand out.
type HealthView struct {
	LastRun             time.Time `json:"lastRun"`
	LastError           string    `json:"lastError,omitempty"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
}

func (h *Health) recordSuccess(t time.Time) {
	h.mtx.Lock()
	h.lastRun = t
	h.lastErr = nil
	h.consecutiveFailures = 0
	h.mtx.Unlock()
}

func (h *Health) recordFailure(t time.Time, err error) {
	h.mtx.Lock()
	h.lastRun = t
	h.lastErr = err
	h.consecutiveFailures++
	h.mtx.Unlock()
}

// View returns a consistent copy of the record.
func (h *Health) View() HealthView {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	v := HealthView{
		LastRun:             h.lastRun,
		ConsecutiveFailures: h.consecutiveFailures,
	}
	if h.lastErr != nil {
		v.LastError = h.lastErr.Error()
	}
	return v
}
