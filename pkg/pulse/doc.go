// Package pulse provides a fine-grained reactive dataflow engine.
//
// The engine tracks dependencies automatically at runtime: reading a signal
// inside an effect or computed subscribes that observer to the signal's
// changes. Writes propagate through a deferring scheduler so that multiple
// writes in one synchronous block collapse into a single re-run per observer.
//
// # Core Types
//
// Signal[T] is a reactive value container:
//
//	count := NewSignal(0)
//	value := count.Get()  // Read (subscribes the current observer)
//	count.Set(5)          // Write (notifies subscribers if the value changed)
//	count.Update(func(n int) int { return n + 1 })
//
// Computed[T] is a cached derived value, recomputed lazily on read:
//
//	doubled := NewComputed(func() int { return count.Get() * 2 })
//	value := doubled.Get()  // Recomputes only if a dependency changed
//
// Effect runs a side effect whenever its dependencies change:
//
//	e := CreateEffect(func() Cleanup {
//	    fmt.Println("Count is:", count.Get())
//	    return func() { /* cleanup before re-run and on dispose */ }
//	})
//	defer e.Dispose()
//
// # Scheduling
//
// Effect re-runs are not executed inside the triggering Set call. They are
// queued on a Scheduler, deduplicated, and drained shortly after the current
// synchronous unit of work. WaitForUpdates blocks until the drain (including
// any work it cascaded) has settled:
//
//	count.Set(1)
//	count.Set(2)
//	WaitForUpdates()  // the effect re-ran exactly once, seeing 2
//
// # Scopes
//
// Scope groups effects for bulk disposal, typically one scope per component
// or per unit of UI lifetime:
//
//	scope := NewScope(nil)
//	scope.Run(func() {
//	    CreateEffect(...)  // owned by scope
//	})
//	scope.Stop()  // disposes everything created inside Run
//
// # Concurrency
//
// The execution model is cooperative: signal reads, writes, and observer
// execution are fully synchronous, and the only suspension point is the
// scheduler's flush boundary. The primitives themselves are nevertheless
// safe for use from multiple goroutines; the tracking context (the ambient
// "current observer") is per-goroutine.
package pulse
