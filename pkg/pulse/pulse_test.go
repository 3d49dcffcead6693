package pulse

import "sync/atomic"

// testObserver counts MarkDirty calls without scheduling anything.
type testObserver struct {
	id    uint64
	dirty atomic.Int32
}

func newTestObserver() *testObserver {
	return &testObserver{id: nextID()}
}

func (o *testObserver) MarkDirty() {
	o.dirty.Add(1)
}

func (o *testObserver) ID() uint64 {
	return o.id
}

func (o *testObserver) dirtyCount() int {
	return int(o.dirty.Load())
}
