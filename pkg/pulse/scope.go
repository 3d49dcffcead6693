package pulse

import (
	"sync"
	"sync/atomic"
)

// Scope groups reactive primitives for bulk disposal. Effects created while
// a scope is current (inside Run) register with it; stopping the scope
// disposes all of them, plus any child scopes and manual cleanups.
//
// Scopes nest: a scope created while another is current becomes its child
// and is stopped with it, children before their parent, most recent first.
// This mirrors component lifetimes, where a parent unmounting tears down
// its subtree.
type Scope struct {
	id     uint64
	parent *Scope

	mu       sync.Mutex
	children []*Scope
	effects  []*Effect
	cleanups []func()

	stopped atomic.Bool
}

// NewScope creates a scope under the given parent. A nil parent makes a
// root scope.
func NewScope(parent *Scope) *Scope {
	s := &Scope{
		id:     nextID(),
		parent: parent,
	}

	if parent != nil {
		parent.addChild(s)
	}

	return s
}

// EffectScope creates a scope nested under whatever scope is current on
// this goroutine (or a root scope if none is).
func EffectScope() *Scope {
	return NewScope(currentScope())
}

// ID returns the unique identifier for this scope.
func (s *Scope) ID() uint64 {
	return s.id
}

// IsStopped reports whether Stop has been called.
func (s *Scope) IsStopped() bool {
	return s.stopped.Load()
}

// Run executes fn with this scope installed as the current scope, restoring
// the previous one afterwards even if fn panics. Effects and OnScopeDispose
// registrations made synchronously inside fn belong to this scope.
func (s *Scope) Run(fn func()) {
	WithScope(s, fn)
}

// OnCleanup registers fn to run when the scope stops. Registrations on a
// stopped scope are silently ignored.
func (s *Scope) OnCleanup(fn func()) {
	if fn == nil || s.stopped.Load() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanups = append(s.cleanups, fn)
}

// adopt takes ownership of an effect. No-op once stopped: the effect simply
// stays unscoped and must be disposed by its creator.
func (s *Scope) adopt(e *Effect) {
	if s.stopped.Load() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.effects = append(s.effects, e)
}

func (s *Scope) addChild(child *Scope) {
	if s.stopped.Load() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = append(s.children, child)
}

func (s *Scope) removeChild(child *Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// Stop disposes everything the scope collected: child scopes first (in
// reverse creation order), then effects, then cleanups in reverse order.
// Idempotent; the scope accepts no registrations afterwards.
func (s *Scope) Stop() {
	if s.stopped.Swap(true) {
		return
	}

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	s.mu.Lock()
	children := s.children
	effects := s.effects
	cleanups := s.cleanups
	s.children = nil
	s.effects = nil
	s.cleanups = nil
	s.mu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Stop()
	}

	for _, e := range effects {
		e.Dispose()
	}

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// OnScopeDispose registers fn with the current scope. Without a current
// scope, or after the scope stopped, the call is silently ignored.
func OnScopeDispose(fn func()) {
	if scope := currentScope(); scope != nil {
		scope.OnCleanup(fn)
	}
}
