package pulse

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Effect is a reactive side effect. It runs once on creation and re-runs
// whenever a signal or computed it read during its last run changes.
//
// Dependencies are rebuilt from scratch on every run: a signal read only in
// some branches creates a dependency only in the runs that actually take
// that branch. Before each run the effect unsubscribes from everything it
// was subscribed to, so stale dependencies never trigger it.
type Effect struct {
	id uint64

	// fn is the effect body. Its return value, if non-nil, is the cleanup
	// to run before the next run and on dispose.
	fn func() Cleanup

	cleanup Cleanup

	// name is an optional diagnostic label.
	name string

	// sources are the signals/computeds read during the most recent run.
	sources   []*signalBase
	sourcesMu sync.Mutex

	scope *Scope
	sched *Scheduler

	// pending is set while a re-run is queued, so that any number of
	// dependency changes within one flush turn schedule at most one run.
	pending atomic.Bool

	// running guards against re-entrant execution.
	running atomic.Bool

	disposed atomic.Bool
}

// EffectOption configures an Effect at creation time.
type EffectOption interface {
	applyEffect(e *Effect)
}

type effectOptionFunc func(*Effect)

func (f effectOptionFunc) applyEffect(e *Effect) { f(e) }

// WithName attaches a diagnostic name to the effect. The name shows up in
// debug logs and recovered-panic reports.
func WithName(name string) EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.name = name
	})
}

// WithScheduler routes the effect's re-runs through the given scheduler
// instead of the package default. Mainly useful for tests that want a fully
// isolated flush queue.
func WithScheduler(s *Scheduler) EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.sched = s
	})
}

// CreateEffect creates an effect and runs it once, synchronously.
// A panic during this first run propagates to the caller; panics during
// scheduled re-runs are isolated by the scheduler instead.
//
// If a scope is current (see Scope.Run), the effect registers with it and
// is disposed when the scope stops. Dispose may also be called directly.
func CreateEffect(fn func() Cleanup, opts ...EffectOption) *Effect {
	e := &Effect{
		id:    nextID(),
		fn:    fn,
		scope: currentScope(),
		sched: defaultScheduler,
	}

	for _, opt := range opts {
		opt.applyEffect(e)
	}

	if e.scope != nil {
		e.scope.adopt(e)
	}

	e.run()

	return e
}

// MarkDirty schedules the effect to re-run. Implements Observer.
// Idempotent per flush turn: once pending, further dependency changes
// before the run are collapsed.
func (e *Effect) MarkDirty() {
	if e.disposed.Load() {
		return
	}

	if e.pending.CompareAndSwap(false, true) {
		e.sched.Schedule(e)
	}
}

// ID implements Observer and Task.
func (e *Effect) ID() uint64 {
	return e.id
}

// Run implements Task. The scheduler calls it when the queued re-run is
// drained; a dispose that happened in between turns it into a no-op.
func (e *Effect) Run() {
	e.run()
}

func (e *Effect) run() {
	if e.disposed.Load() {
		return
	}
	if !e.running.CompareAndSwap(false, true) {
		// Re-entrant trigger during our own run.
		return
	}

	e.pending.Store(false)

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	// Detach before the run so dependency collection starts from empty.
	e.detachSources()

	old := setCurrentObserver(e)
	defer func() {
		// Restore even when the body panics; a stale observer would make
		// every subsequent read on this goroutine appear tracked.
		setCurrentObserver(old)
		e.running.Store(false)
	}()

	if Debug.LogEffectRuns {
		slog.Debug("effect run", "id", e.id, "name", e.name)
	}

	e.cleanup = e.fn()
}

// addSource records a source this effect is subscribed to, so the next run
// (or dispose) can detach from it. Called by signals during tracked reads.
func (e *Effect) addSource(src *signalBase) {
	e.sourcesMu.Lock()
	defer e.sourcesMu.Unlock()

	for _, s := range e.sources {
		if s == src {
			return
		}
	}
	e.sources = append(e.sources, src)
}

func (e *Effect) detachSources() {
	e.sourcesMu.Lock()
	sources := e.sources
	e.sources = nil
	e.sourcesMu.Unlock()

	for _, src := range sources {
		src.remove(e.id)
	}
}

// Dispose permanently retires the effect: it unsubscribes from all sources,
// runs any outstanding cleanup, and makes queued re-runs no-ops.
// Safe to call any number of times.
func (e *Effect) Dispose() {
	if e.disposed.Swap(true) {
		return
	}

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	e.detachSources()
}

// IsDisposed reports whether Dispose has been called.
func (e *Effect) IsDisposed() bool {
	return e.disposed.Load()
}

// OnMount runs fn exactly once, inside an effect with no dependencies.
// The effect never re-runs; this exists for symmetry with component
// lifecycles built on scopes.
func OnMount(fn func()) {
	CreateEffect(func() Cleanup {
		fn()
		return nil
	})
}

// OnUpdate creates an effect that skips its callback on the first run.
// deps establishes the tracked reads; callback fires only when they change.
func OnUpdate(deps func(), callback func()) *Effect {
	first := true
	return CreateEffect(func() Cleanup {
		deps()
		if first {
			first = false
			return nil
		}
		callback()
		return nil
	})
}

var _ sourceTracker = (*Effect)(nil)
var _ Task = (*Effect)(nil)
