package pulse

// Batch groups multiple signal writes on the current goroutine into a
// single notification phase. Notifications raised inside fn are queued,
// deduplicated, and delivered once when the outermost batch completes.
//
// Effects already coalesce through the scheduler; Batch additionally spares
// direct Subscribe callbacks from seeing intermediate states:
//
//	Batch(func() {
//	    firstName.Set("Ada")
//	    lastName.Set("Lovelace")
//	})
//
// Batches nest; only the outermost completion delivers.
func Batch(fn func()) {
	incBatchDepth()

	defer func() {
		if decBatchDepth() {
			deliverPendingNotifies()
		}
	}()

	fn()
}

// deliverPendingNotifies flushes the batch queue, collapsing duplicate
// subscriptions so each interested party hears about the batch once.
func deliverPendingNotifies() {
	pending := drainPendingNotifies()
	if len(pending) == 0 {
		return
	}

	seen := make(map[uint64]struct{}, len(pending))
	for _, sub := range pending {
		if _, dup := seen[sub.id]; dup {
			continue
		}
		seen[sub.id] = struct{}{}
		sub.notify()
	}
}

// Untracked runs fn with dependency tracking suspended: signal reads inside
// fn do not subscribe the current observer. For a single read, Peek is the
// clearer tool.
func Untracked(fn func()) {
	old := setCurrentObserver(nil)
	defer setCurrentObserver(old)
	fn()
}

// UntrackedGet reads a signal without creating a dependency.
// Equivalent to s.Peek().
func UntrackedGet[T any](s *Signal[T]) T {
	return s.Peek()
}
