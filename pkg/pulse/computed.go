package pulse

import (
	"sync"
	"sync/atomic"
)

// Computed is a cached derived value. It plays both reactive roles: it
// observes the signals its compute function reads, and it is itself
// observable, so effects and other computeds can depend on it exactly like
// a signal.
//
// Computeds are lazy. A dependency change only marks the cached value stale
// and notifies downstream; the recomputation happens on the next Get. If
// several dependencies change before a read, the compute function still runs
// once.
type Computed[T any] struct {
	base signalBase

	compute func() T

	valueMu sync.RWMutex
	value   T

	// stale is true when the cached value no longer reflects current
	// dependency values (and before the first compute).
	stale atomic.Bool

	// computing breaks dependency cycles: a computed reached again during
	// its own recomputation serves the stale value instead of recursing.
	computing atomic.Bool

	sources   []*signalBase
	sourcesMu sync.Mutex

	equal func(T, T) bool
}

// NewComputed creates a computed with the given compute function.
// Nothing runs until the first Get.
func NewComputed[T any](compute func() T) *Computed[T] {
	c := &Computed[T]{
		base:    signalBase{id: nextID()},
		compute: compute,
	}
	c.stale.Store(true)
	return c
}

// Get returns the cached value, recomputing it first if stale.
// The current observer, if any, becomes a subscriber of this computed.
//
// A panic inside the compute function propagates to the caller of Get;
// nothing is cached and the computed stays stale, so the next read retries.
func (c *Computed[T]) Get() T {
	if obs := currentObserver(); obs != nil && obs.ID() != c.base.id {
		c.base.attach(obs)
	}

	if c.stale.Load() {
		c.recompute()
	}

	c.valueMu.RLock()
	value := c.value
	c.valueMu.RUnlock()
	return value
}

// Peek returns the value without subscribing the current observer.
// It still recomputes if the cached value is stale.
func (c *Computed[T]) Peek() T {
	if c.stale.Load() {
		c.recompute()
	}
	c.valueMu.RLock()
	value := c.value
	c.valueMu.RUnlock()
	return value
}

// Subscribe registers fn to run whenever this computed is invalidated,
// with the same per-call removal contract as Signal.Subscribe.
func (c *Computed[T]) Subscribe(fn func()) Unsubscribe {
	id := nextID()
	c.base.add(id, fn)
	return func() { c.base.remove(id) }
}

// MarkDirty invalidates the cached value and propagates to this computed's
// own subscribers. Implements Observer; called when a dependency changes.
// The compare-and-swap makes repeated invalidations within one turn notify
// downstream once.
func (c *Computed[T]) MarkDirty() {
	if c.stale.CompareAndSwap(false, true) {
		c.base.notifySubscribers()
	}
}

// ID implements Observer.
func (c *Computed[T]) ID() uint64 {
	return c.base.id
}

// WithEquals configures a custom equality function. When a recomputation
// produces a value equal to the cached one, the old value is kept, which
// preserves identity for callers holding slices or maps.
func (c *Computed[T]) WithEquals(fn func(T, T) bool) *Computed[T] {
	c.equal = fn
	return c
}

func (c *Computed[T]) addSource(src *signalBase) {
	c.sourcesMu.Lock()
	defer c.sourcesMu.Unlock()

	for _, s := range c.sources {
		if s == src {
			return
		}
	}
	c.sources = append(c.sources, src)
}

func (c *Computed[T]) detachSources() {
	c.sourcesMu.Lock()
	sources := c.sources
	c.sources = nil
	c.sourcesMu.Unlock()

	for _, src := range sources {
		src.remove(c.base.id)
	}
}

func (c *Computed[T]) recompute() {
	if c.computing.Swap(true) {
		// Cycle: this computed reads itself, directly or through other
		// computeds. Serve whatever value is cached rather than recurse.
		return
	}
	defer c.computing.Store(false)

	// Same rebuild discipline as effects: drop every old subscription so
	// the run collects dependencies from empty.
	c.detachSources()

	old := setCurrentObserver(c)
	defer setCurrentObserver(old)

	next := c.compute()

	c.valueMu.Lock()
	if !c.equals(c.value, next) {
		c.value = next
	}
	c.valueMu.Unlock()

	// Only after a successful compute; a panic above leaves us stale.
	c.stale.Store(false)
}

func (c *Computed[T]) equals(a, b T) bool {
	if c.equal != nil {
		return c.equal(a, b)
	}
	return defaultEquals(a, b)
}

var _ sourceTracker = (*Computed[int])(nil)
