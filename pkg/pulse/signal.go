package pulse

import (
	"reflect"
	"sync"
)

// subscription is one edge from a source to an interested party.
// Each Subscribe call gets its own entry with a fresh ID, so subscribing the
// same callback twice yields two individually removable subscriptions.
// Observers subscribe under their own stable ID, which deduplicates the edge.
type subscription struct {
	id     uint64
	notify func()
}

// signalBase provides type-erased subscriber management.
// It is embedded in Signal[T] and Computed[T] so both can be observed
// through the same channel.
type signalBase struct {
	id uint64

	mu   sync.RWMutex
	subs []subscription
}

// add registers a subscription, deduplicating by ID.
func (b *signalBase) add(id uint64, notify func()) {
	if notify == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.subs {
		if s.id == id {
			return
		}
	}
	b.subs = append(b.subs, subscription{id: id, notify: notify})
}

// remove drops the subscription with the given ID, if present.
// Order is not meaningful, so removal swaps with the last entry.
func (b *signalBase) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs[i] = b.subs[len(b.subs)-1]
			b.subs = b.subs[:len(b.subs)-1]
			return
		}
	}
}

// attach subscribes the given observer and, when it tracks sources,
// records the reverse edge so the observer can detach on its next run.
func (b *signalBase) attach(obs Observer) {
	b.add(obs.ID(), obs.MarkDirty)
	if tr, ok := obs.(sourceTracker); ok {
		tr.addSource(b)
	}
}

// notifySubscribers invokes every current subscription.
// Notification at this layer is synchronous; deferral is the subscriber's
// responsibility (effects and computeds register deferring callbacks).
// Inside a Batch the notifications are queued and deduplicated instead.
func (b *signalBase) notifySubscribers() {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	if batchDepth() > 0 {
		for _, s := range subs {
			queuePendingNotify(s)
		}
		return
	}

	for _, s := range subs {
		s.notify()
	}
}

// Signal is a reactive value container. Reading it during a tracked context
// (an effect run or a computed recomputation) subscribes the current observer
// to receive a notification whenever the value changes.
type Signal[T any] struct {
	base signalBase

	mu    sync.RWMutex
	value T

	// equal decides whether a write actually changed the value.
	// nil means defaultEquals.
	equal func(T, T) bool
}

// NewSignal creates a signal holding the given initial value.
func NewSignal[T any](initial T) *Signal[T] {
	return &Signal[T]{
		base:  signalBase{id: nextID()},
		value: initial,
	}
}

// Get returns the current value and subscribes the current observer, if any.
func (s *Signal[T]) Get() T {
	s.mu.RLock()
	value := s.value
	s.mu.RUnlock()

	// Track after releasing the value lock to avoid lock ordering issues
	// when the observer immediately reads other signals.
	if obs := currentObserver(); obs != nil {
		s.base.attach(obs)
	}

	return value
}

// Peek returns the current value without creating a dependency,
// regardless of whether an observer is active.
func (s *Signal[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set stores a new value and notifies subscribers.
// Writing a value equal to the current one is a no-op: no notification fires.
func (s *Signal[T]) Set(value T) {
	s.mu.Lock()
	changed := !s.equals(s.value, value)
	if changed {
		s.value = value
	}
	s.mu.Unlock()

	if changed {
		s.base.notifySubscribers()
	}
}

// Update atomically applies fn to the current value.
func (s *Signal[T]) Update(fn func(T) T) {
	s.mu.Lock()
	next := fn(s.value)
	changed := !s.equals(s.value, next)
	if changed {
		s.value = next
	}
	s.mu.Unlock()

	if changed {
		s.base.notifySubscribers()
	}
}

// Subscribe registers fn to run synchronously on every accepted write.
// Every call creates an independent subscription, so the returned
// Unsubscribe removes exactly this registration and no other.
func (s *Signal[T]) Subscribe(fn func()) Unsubscribe {
	id := nextID()
	s.base.add(id, fn)
	return func() { s.base.remove(id) }
}

// WithEquals configures a custom equality function, used to decide whether
// a write changed the value. Useful where DeepEqual is too expensive or has
// the wrong semantics.
func (s *Signal[T]) WithEquals(fn func(T, T) bool) *Signal[T] {
	s.equal = fn
	return s
}

// ID returns the unique identifier for this signal.
func (s *Signal[T]) ID() uint64 {
	return s.base.id
}

func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}

// defaultEquals compares with == when the dynamic type supports it and
// falls back to reflect.DeepEqual for composites. Structs and arrays always
// take the DeepEqual path: their type may report Comparable while an
// interface-typed field still makes == panic at runtime.
func defaultEquals[T any](a, b T) bool {
	av, bv := any(a), any(b)
	if av == nil || bv == nil {
		return av == nil && bv == nil
	}
	t := reflect.TypeOf(av)
	switch t.Kind() {
	case reflect.Struct, reflect.Array:
		return reflect.DeepEqual(a, b)
	}
	if t.Comparable() {
		return av == bv
	}
	return reflect.DeepEqual(a, b)
}
