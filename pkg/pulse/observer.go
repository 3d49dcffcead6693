package pulse

// Observer is anything that can be notified when a dependency changes.
// Effects and computeds implement it; so does any custom node that wants to
// participate in dependency tracking.
type Observer interface {
	// MarkDirty notifies the observer that one of its dependencies changed.
	// For effects this schedules a re-run; for computeds it invalidates the
	// cached value and propagates to their own subscribers.
	MarkDirty()

	// ID returns a unique identifier for this observer.
	// Used for subscription bookkeeping and scheduler deduplication.
	ID() uint64
}

// sourceTracker is implemented by observers that rebuild their dependency
// set from scratch on every run and therefore need to remember which sources
// they are currently subscribed to.
type sourceTracker interface {
	Observer
	addSource(src *signalBase)
}

// Task is a schedulable unit of deferred work. Scheduling the same Task
// (by ID) twice within one flush turn runs it once.
type Task interface {
	// ID returns a stable identifier used for queue deduplication.
	ID() uint64

	// Run executes the unit of work.
	Run()
}

// Cleanup is a function returned by an effect body to release resources.
// It runs before the effect re-runs and when the effect is disposed.
type Cleanup func()

// Unsubscribe removes a subscription previously registered with
// Signal.Subscribe or Computed.Subscribe. Safe to call more than once.
type Unsubscribe func()
