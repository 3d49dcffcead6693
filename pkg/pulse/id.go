package pulse

import "sync/atomic"

// idCounter is the source of unique IDs for every reactive node and
// subscription in the process. IDs are monotonic and never reused.
var idCounter atomic.Uint64

func nextID() uint64 {
	return idCounter.Add(1)
}
