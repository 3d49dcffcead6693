package pulse

import (
	"runtime"
	"sync"
)

// trackingContext holds the ambient reactive state for one goroutine.
// Keeping it per goroutine preserves the "exactly one active observer at a
// time" invariant without a process-wide mutable global.
type trackingContext struct {
	// observer is what currently tracks dependencies. Reading a signal
	// subscribes this observer; nil means reads are untracked.
	observer Observer

	// scope is the Scope that adopts effects created on this goroutine.
	scope *Scope

	// depth counts nested Batch calls. While > 0, signal notifications
	// are queued instead of fired.
	depth int

	// pending accumulates notifications queued during a batch,
	// deduplicated by subscription ID before delivery.
	pending []subscription
}

// trackingContexts maps goroutine ID to its context.
var trackingContexts sync.Map

// goroutineID parses the current goroutine's ID out of the runtime stack
// header ("goroutine <id> ..."). Implementation detail; never exposed.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

func getTrackingContext() *trackingContext {
	gid := goroutineID()
	if tc, ok := trackingContexts.Load(gid); ok {
		return tc.(*trackingContext)
	}

	tc := &trackingContext{}
	trackingContexts.Store(gid, tc)
	return tc
}

// currentObserver returns the observer tracking reads on this goroutine,
// or nil when reads are untracked.
func currentObserver() Observer {
	return getTrackingContext().observer
}

// setCurrentObserver installs an observer and returns the previous one so
// callers can restore it. Restoration must happen via defer: a panic in
// user code must never leave a stale observer tracking subsequent reads.
func setCurrentObserver(obs Observer) Observer {
	tc := getTrackingContext()
	old := tc.observer
	tc.observer = obs
	return old
}

func currentScope() *Scope {
	return getTrackingContext().scope
}

func setCurrentScope(s *Scope) *Scope {
	tc := getTrackingContext()
	old := tc.scope
	tc.scope = s
	return old
}

func batchDepth() int {
	return getTrackingContext().depth
}

func incBatchDepth() {
	getTrackingContext().depth++
}

// decBatchDepth reports whether the outermost batch just completed.
func decBatchDepth() bool {
	tc := getTrackingContext()
	tc.depth--
	return tc.depth == 0
}

func queuePendingNotify(s subscription) {
	tc := getTrackingContext()
	tc.pending = append(tc.pending, s)
}

func drainPendingNotifies() []subscription {
	tc := getTrackingContext()
	pending := tc.pending
	tc.pending = nil
	return pending
}

// WithObserver runs fn with obs installed as the current observer.
// Reads inside fn subscribe obs instead of whatever was tracking before.
// Used internally by effects and computeds, and by tests that need a
// hand-rolled observer.
func WithObserver(obs Observer, fn func()) {
	old := setCurrentObserver(obs)
	defer setCurrentObserver(old)
	fn()
}

// WithScope runs fn with s as the current scope, so effects created inside
// fn register with it. This is what Scope.Run uses; it is exported for
// goroutines that need to create effects on behalf of an existing scope.
func WithScope(s *Scope, fn func()) {
	old := setCurrentScope(s)
	defer setCurrentScope(old)
	fn()
}
