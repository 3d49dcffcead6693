package pulse

import "errors"

// ErrFlushBudgetExceeded is logged when a drain exceeds its FlushBudget and
// the scheduler abandons the remaining queue. It almost always means two or
// more reactions are writing signals that re-trigger each other without
// converging.
//
// The queue is dropped, not retried: replaying the same cascade would trip
// the budget again. Fix the cycle, or raise the budget if the cascade is
// genuinely that deep.
var ErrFlushBudgetExceeded = errors.New("pulse: flush budget exceeded")
