package pulse

// defaultMaxFlushPasses caps consecutive recursive flush passes per drain.
// Two effects ping-ponging writes at each other hit this cap instead of
// spinning the drain goroutine forever.
const defaultMaxFlushPasses = 128

// FlushBudget bounds how much work one drain may do before the scheduler
// gives up, logs a diagnostic, and drops what is left. Convergence of
// reactive cascades is the application's responsibility; the budget turns a
// livelock into a loud, observable failure.
type FlushBudget struct {
	// MaxPasses caps recursive flush passes per drain.
	// Zero or negative selects the default of 128.
	MaxPasses int

	// MaxReactions caps the total reactions run per drain.
	// Zero or negative means unlimited.
	MaxReactions int
}

// DefaultFlushBudget returns the budget used when none is configured.
func DefaultFlushBudget() FlushBudget {
	return FlushBudget{MaxPasses: defaultMaxFlushPasses}
}

func (b FlushBudget) passesExhausted(passes int) bool {
	max := b.MaxPasses
	if max <= 0 {
		max = defaultMaxFlushPasses
	}
	return passes >= max
}

func (b FlushBudget) reactionsExhausted(reactions int) bool {
	if b.MaxReactions <= 0 {
		return false
	}
	return reactions >= b.MaxReactions
}
