package pulse

import "testing"

func TestComputedCachesValue(t *testing.T) {
	a := NewSignal(1)
	b := NewSignal(2)

	calls := 0
	sum := NewComputed(func() int {
		calls++
		return a.Get() + b.Get()
	})

	for i := 0; i < 3; i++ {
		if v := sum.Get(); v != 3 {
			t.Fatalf("expected 3, got %d", v)
		}
	}

	if calls != 1 {
		t.Errorf("three reads with unchanged deps should compute once, got %d", calls)
	}
}

func TestComputedRecomputesLazily(t *testing.T) {
	a := NewSignal(1)

	calls := 0
	double := NewComputed(func() int {
		calls++
		return a.Get() * 2
	})

	if v := double.Get(); v != 2 {
		t.Fatalf("expected 2, got %d", v)
	}

	// Invalidation alone must not recompute.
	a.Set(5)
	WaitForUpdates()
	if calls != 1 {
		t.Errorf("recomputation should wait for the next read, got %d calls", calls)
	}

	if v := double.Get(); v != 10 {
		t.Errorf("expected 10, got %d", v)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls after the read, got %d", calls)
	}
}

func TestComputedFreshAfterWrite(t *testing.T) {
	a := NewSignal(1)
	b := NewSignal(2)
	sum := NewComputed(func() int { return a.Get() + b.Get() })

	if v := sum.Get(); v != 3 {
		t.Fatalf("expected 3, got %d", v)
	}

	a.Set(10)
	if v := sum.Get(); v != 12 {
		t.Errorf("expected 12 immediately after the write, got %d", v)
	}
}

func TestComputedChains(t *testing.T) {
	a := NewSignal(2)
	double := NewComputed(func() int { return a.Get() * 2 })
	quad := NewComputed(func() int { return double.Get() * 2 })

	if v := quad.Get(); v != 8 {
		t.Fatalf("expected 8, got %d", v)
	}

	a.Set(3)
	if v := quad.Get(); v != 12 {
		t.Errorf("expected 12 through the chain, got %d", v)
	}
}

func TestComputedDrivesEffects(t *testing.T) {
	a := NewSignal(1)
	b := NewSignal(2)
	sum := NewComputed(func() int { return a.Get() + b.Get() })

	var seen []int
	e := CreateEffect(func() Cleanup {
		seen = append(seen, sum.Get())
		return nil
	})
	defer e.Dispose()

	a.Set(10)
	WaitForUpdates()

	if len(seen) != 2 || seen[0] != 3 || seen[1] != 12 {
		t.Errorf("expected [3 12], got %v", seen)
	}
}

func TestComputedRebuildsDependencies(t *testing.T) {
	flag := NewSignal(true)
	a := NewSignal(1)
	b := NewSignal(2)

	calls := 0
	pick := NewComputed(func() int {
		calls++
		if flag.Get() {
			return a.Get()
		}
		return b.Get()
	})

	if v := pick.Get(); v != 1 {
		t.Fatalf("expected 1, got %d", v)
	}

	// b is not currently a dependency; writing it must not invalidate.
	b.Set(20)
	_ = pick.Get()
	if calls != 1 {
		t.Errorf("expected no recompute after writing b, got %d calls", calls)
	}

	flag.Set(false)
	if v := pick.Get(); v != 20 {
		t.Errorf("expected 20, got %d", v)
	}

	a.Set(100)
	_ = pick.Get()
	if calls != 2 {
		t.Errorf("expected no recompute after writing a, got %d calls", calls)
	}
}

func TestComputedSubscribeFiresOnInvalidation(t *testing.T) {
	a := NewSignal(1)
	double := NewComputed(func() int { return a.Get() * 2 })
	_ = double.Get()

	notified := 0
	unsub := double.Subscribe(func() { notified++ })
	defer unsub()

	a.Set(2)
	if notified != 1 {
		t.Errorf("expected 1 invalidation notice, got %d", notified)
	}

	// Still stale: a second write must not notify again.
	a.Set(3)
	if notified != 1 {
		t.Errorf("repeated invalidation should collapse, got %d", notified)
	}

	_ = double.Get()
	a.Set(4)
	if notified != 2 {
		t.Errorf("expected a new notice after revalidation, got %d", notified)
	}
}

func TestComputedSelfReferenceDoesNotRecurse(t *testing.T) {
	var c *Computed[int]
	c = NewComputed(func() int {
		// Re-entrant read: served the stale (zero) value, not recursion.
		return c.Peek() + 1
	})

	if v := c.Get(); v != 1 {
		t.Errorf("expected 1 from the guarded cycle, got %d", v)
	}
}

func TestComputedPanicLeavesStale(t *testing.T) {
	boom := NewSignal(false)

	calls := 0
	c := NewComputed(func() int {
		calls++
		if boom.Get() {
			panic("compute failed")
		}
		return 7
	})

	if v := c.Get(); v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}

	boom.Set(true)

	mustPanic := func() {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Fatal("expected the compute panic to reach the reader")
			}
		}()
		_ = c.Get()
	}

	// Each read retries: nothing was cached, the node stayed stale.
	mustPanic()
	mustPanic()
	if calls != 3 {
		t.Errorf("expected 3 compute attempts, got %d", calls)
	}

	boom.Set(false)
	if v := c.Get(); v != 7 {
		t.Errorf("expected recovery to 7, got %d", v)
	}
}

func TestComputedPanicRestoresObserver(t *testing.T) {
	c := NewComputed(func() int {
		panic("boom")
	})

	func() {
		defer func() { recover() }()
		_ = c.Get()
	}()

	if currentObserver() != nil {
		t.Error("current observer should be nil after a panicking compute")
	}
}

func TestComputedWithEqualsPreservesIdentity(t *testing.T) {
	a := NewSignal(1)

	c := NewComputed(func() []int {
		return []int{a.Get() % 2}
	}).WithEquals(func(x, y []int) bool {
		return len(x) == len(y) && x[0] == y[0]
	})

	first := c.Get()

	// 3 % 2 == 1 % 2: equal per the custom function, old value kept.
	a.Set(3)
	second := c.Get()

	if &first[0] != &second[0] {
		t.Error("equal recompute should keep the cached value's identity")
	}
}
