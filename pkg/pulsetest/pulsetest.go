package pulsetest

import (
	"sync"
	"testing"
	"time"

	"github.com/pulse-dev/pulse/pkg/pulse"
)

// settleTimeout bounds how long Settle waits before failing the test.
// A healthy drain finishes in microseconds; anything near this limit is a
// wedged reaction or a missing convergence condition.
const settleTimeout = 5 * time.Second

// Recorder is a concurrency-safe log of values, typically fed from inside
// an effect to assert what it observed across runs.
type Recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

// NewRecorder creates an empty Recorder.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{}
}

// Record appends a value.
func (r *Recorder[T]) Record(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

// Values returns a copy of everything recorded so far.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.values))
	copy(out, r.values)
	return out
}

// Len returns how many values have been recorded.
func (r *Recorder[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

// Last returns the most recent value, or false if nothing was recorded.
func (r *Recorder[T]) Last() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		var zero T
		return zero, false
	}
	return r.values[len(r.values)-1], true
}

// Settle waits for the default scheduler to drain, failing the test if it
// does not settle within the timeout.
func Settle(t testing.TB) {
	t.Helper()
	SettleScheduler(t, pulse.DefaultScheduler())
}

// SettleScheduler waits for the given scheduler to drain.
func SettleScheduler(t testing.TB, s *pulse.Scheduler) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		s.WaitForUpdates()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(settleTimeout):
		t.Fatalf("scheduler did not settle within %v", settleTimeout)
	}
}
