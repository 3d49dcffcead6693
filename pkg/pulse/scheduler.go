package pulse

import (
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// DefaultFlushDelay is how long a scheduler waits after the first Schedule
// of a turn before draining. The delay is what lets every write in the same
// synchronous block land in one flush; Go has no microtask boundary to hook,
// so a short timer stands in for it.
const DefaultFlushDelay = time.Millisecond

// Scheduler is a deduplicating deferred work queue. Scheduling a task never
// runs it inline: the queue is drained shortly afterwards on a separate
// goroutine, each queued task at most once per pass, recursing while the
// drain itself enqueues more work.
//
// A panic in one task is caught and logged so it cannot stall the rest of
// the queue. Runaway cascades (effects ping-ponging writes at each other)
// are cut off by the flush budget rather than left to spin.
type Scheduler struct {
	mu      sync.Mutex
	queue   []Task
	queued  map[uint64]struct{}
	armed   bool
	waiters []chan struct{}

	// draining serializes drain entry when a forced flush races the timer.
	draining bool

	delay   time.Duration
	budget  FlushBudget
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger sets the logger used for recovered panics and budget
// diagnostics. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithFlushDelay sets the deferral window before a drain starts.
func WithFlushDelay(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.delay = d
	}
}

// WithFlushBudget sets the drain budget.
func WithFlushBudget(b FlushBudget) SchedulerOption {
	return func(s *Scheduler) {
		s.budget = b
	}
}

// WithMetrics attaches Prometheus instrumentation to the scheduler.
func WithMetrics(m *Metrics) SchedulerOption {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// NewScheduler creates an independent scheduler. Most code uses the package
// default via ScheduleUpdate/WaitForUpdates; isolated schedulers exist for
// tests and for embedders that want their own flush cadence.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		queued: make(map[uint64]struct{}),
		delay:  DefaultFlushDelay,
		budget: DefaultFlushBudget(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Schedule enqueues a task for the next flush. Re-scheduling a task whose ID
// is already pending is a no-op, which is what gives observers their
// at-most-once-per-flush guarantee.
func (s *Scheduler) Schedule(t Task) {
	if t == nil {
		return
	}

	s.mu.Lock()
	if _, dup := s.queued[t.ID()]; dup {
		s.mu.Unlock()
		return
	}
	s.queued[t.ID()] = struct{}{}
	s.queue = append(s.queue, t)
	depth := len(s.queue)
	arm := !s.armed
	if arm {
		s.armed = true
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.updatesScheduled.Inc()
		s.metrics.queueDepth.Set(float64(depth))
	}

	if arm {
		time.AfterFunc(s.delay, s.drain)
	}
}

// ScheduleUpdate enqueues a one-shot callback. Each call is an independent
// unit; callers that want repeated schedules of the same callback to
// collapse should hold a handle from NewTask and schedule that instead.
func (s *Scheduler) ScheduleUpdate(fn func()) {
	s.Schedule(NewTask(fn))
}

// WaitForUpdates blocks until the in-flight flush chain, including every
// recursive continuation it spawns, has fully drained. Returns immediately
// when nothing is pending. Must not be called from inside a reaction: the
// reaction would be waiting on its own flush.
func (s *Scheduler) WaitForUpdates() {
	s.mu.Lock()
	if !s.armed && len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	w := make(chan struct{})
	s.waiters = append(s.waiters, w)
	s.mu.Unlock()

	<-w
}

// FlushUpdates drains pending work without waiting out the deferral window,
// then blocks until the queue has settled.
func (s *Scheduler) FlushUpdates() {
	s.drain()
	s.WaitForUpdates()
}

// drain runs flush passes until the queue is empty or the budget trips.
// Each pass snapshots the queue in insertion order, clears it, and executes
// the snapshot; work enqueued by the reactions themselves is picked up by
// the next pass immediately rather than waiting for a new external trigger.
func (s *Scheduler) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	span := s.startFlushSpan()
	start := time.Now()
	passes, runs := 0, 0
	var budgetErr error

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.settleLocked()
			break
		}
		if s.budget.passesExhausted(passes) || s.budget.reactionsExhausted(runs) {
			dropped := len(s.queue)
			s.queue = nil
			s.queued = make(map[uint64]struct{})
			s.settleLocked()

			budgetErr = ErrFlushBudgetExceeded
			s.logger.Error("abandoning flush",
				"err", budgetErr,
				"passes", passes,
				"reactions", runs,
				"dropped", dropped)
			if s.metrics != nil {
				s.metrics.budgetTrips.Inc()
			}
			break
		}
		batch := s.queue
		s.queue = nil
		s.queued = make(map[uint64]struct{}, len(batch))
		s.mu.Unlock()

		passes++
		if s.metrics != nil {
			s.metrics.flushPasses.Inc()
		}
		for _, t := range batch {
			runs++
			s.runOne(t)
		}
	}

	if Debug.LogFlushes {
		s.logger.Debug("flush drained", "passes", passes, "reactions", runs)
	}
	if s.metrics != nil {
		s.metrics.drainDuration.Observe(time.Since(start).Seconds())
		s.metrics.queueDepth.Set(0)
	}
	s.endFlushSpan(span, passes, runs, budgetErr)
}

// settleLocked disarms the scheduler and releases waiters.
// Called with s.mu held; unlocks it.
func (s *Scheduler) settleLocked() {
	s.armed = false
	s.draining = false
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
}

// runOne executes a single task, isolating its panics so one broken
// reaction never prevents the rest of the snapshot from running.
func (s *Scheduler) runOne(t Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("recovered panic in scheduled reaction",
				"task", t.ID(),
				"panic", r)
			if s.metrics != nil {
				s.metrics.recoveredPanics.Inc()
			}
		}
	}()

	if s.metrics != nil {
		s.metrics.reactionsRun.Inc()
	}
	t.Run()
}

// funcTask adapts a plain callback to the Task interface.
type funcTask struct {
	id uint64
	fn func()
}

func (t *funcTask) ID() uint64 { return t.id }
func (t *funcTask) Run()       { t.fn() }

// NewTask wraps fn in a schedulable handle with a stable identity.
// Scheduling the same handle twice within one flush turn runs it once.
func NewTask(fn func()) Task {
	return &funcTask{id: nextID(), fn: fn}
}

// defaultScheduler is the process-wide scheduler that effects and computeds
// use unless rerouted with WithScheduler.
var defaultScheduler = NewScheduler()

// DefaultScheduler returns the package-level scheduler.
func DefaultScheduler() *Scheduler {
	return defaultScheduler
}

// ScheduleUpdate enqueues a one-shot callback on the default scheduler.
func ScheduleUpdate(fn func()) {
	defaultScheduler.ScheduleUpdate(fn)
}

// WaitForUpdates blocks until the default scheduler has settled.
func WaitForUpdates() {
	defaultScheduler.WaitForUpdates()
}

// FlushUpdates forces a drain of the default scheduler and waits for it.
func FlushUpdates() {
	defaultScheduler.FlushUpdates()
}
