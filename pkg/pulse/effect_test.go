package pulse

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func TestEffectRunsOnCreate(t *testing.T) {
	ran := false
	e := CreateEffect(func() Cleanup {
		ran = true
		return nil
	})
	defer e.Dispose()

	if !ran {
		t.Error("effect should run synchronously on creation")
	}
}

func TestEffectReRunsOnDependencyChange(t *testing.T) {
	count := NewSignal(0)

	runs := 0
	e := CreateEffect(func() Cleanup {
		_ = count.Get()
		runs++
		return nil
	})
	defer e.Dispose()

	count.Set(1)
	WaitForUpdates()

	if runs != 2 {
		t.Errorf("expected 2 runs, got %d", runs)
	}
}

func TestEffectBatchesWritesInOneTurn(t *testing.T) {
	a := NewSignal(1)
	b := NewSignal(2)

	runs := 0
	e := CreateEffect(func() Cleanup {
		_ = a.Get()
		_ = b.Get()
		runs++
		return nil
	})
	defer e.Dispose()

	// Two writes in one synchronous block: one batched re-run.
	a.Set(10)
	b.Set(20)
	WaitForUpdates()

	if runs != 2 {
		t.Errorf("expected 2 runs total (initial + one batched), got %d", runs)
	}
}

func TestEffectRebuildsDependenciesEachRun(t *testing.T) {
	flag := NewSignal(true)
	a := NewSignal(1)
	b := NewSignal(2)

	runs := 0
	e := CreateEffect(func() Cleanup {
		if flag.Get() {
			_ = a.Get()
		} else {
			_ = b.Get()
		}
		runs++
		return nil
	})
	defer e.Dispose()

	if runs != 1 {
		t.Fatalf("expected 1 initial run, got %d", runs)
	}

	// While flag is true, b is not a dependency.
	b.Set(20)
	WaitForUpdates()
	if runs != 1 {
		t.Errorf("changing b should not re-run while flag is true, got %d runs", runs)
	}

	a.Set(10)
	WaitForUpdates()
	if runs != 2 {
		t.Errorf("changing a should re-run, got %d runs", runs)
	}

	flag.Set(false)
	WaitForUpdates()
	if runs != 3 {
		t.Fatalf("flag flip should re-run, got %d runs", runs)
	}

	// Now the dependency set is {flag, b}; a is stale and must not trigger.
	a.Set(99)
	WaitForUpdates()
	if runs != 3 {
		t.Errorf("changing a should not re-run after flag flipped, got %d runs", runs)
	}

	b.Set(200)
	WaitForUpdates()
	if runs != 4 {
		t.Errorf("changing b should re-run after flag flipped, got %d runs", runs)
	}
}

func TestEffectCleanupRunsBeforeReRunAndOnDispose(t *testing.T) {
	count := NewSignal(0)

	var order []string
	e := CreateEffect(func() Cleanup {
		_ = count.Get()
		order = append(order, "run")
		return func() {
			order = append(order, "cleanup")
		}
	})

	count.Set(1)
	WaitForUpdates()
	e.Dispose()

	want := []string{"run", "cleanup", "run", "cleanup"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestEffectDisposeStopsReRuns(t *testing.T) {
	count := NewSignal(0)

	runs := 0
	e := CreateEffect(func() Cleanup {
		_ = count.Get()
		runs++
		return nil
	})

	e.Dispose()
	count.Set(99)
	WaitForUpdates()

	if runs != 1 {
		t.Errorf("disposed effect must not re-run, got %d runs", runs)
	}

	// Second dispose must not panic.
	e.Dispose()

	if !e.IsDisposed() {
		t.Error("IsDisposed should report true")
	}
}

func TestEffectDisposeCancelsQueuedRun(t *testing.T) {
	sched := NewScheduler(WithFlushDelay(10 * time.Millisecond))
	count := NewSignal(0)

	runs := 0
	e := CreateEffect(func() Cleanup {
		_ = count.Get()
		runs++
		return nil
	}, WithScheduler(sched))

	// Queue a re-run, then dispose before the flush fires.
	count.Set(1)
	e.Dispose()
	sched.WaitForUpdates()

	if runs != 1 {
		t.Errorf("queued run for a disposed effect must no-op, got %d runs", runs)
	}
}

func TestEffectPeekDoesNotTrack(t *testing.T) {
	count := NewSignal(0)

	runs := 0
	e := CreateEffect(func() Cleanup {
		_ = count.Peek()
		runs++
		return nil
	})
	defer e.Dispose()

	count.Set(5)
	WaitForUpdates()

	if runs != 1 {
		t.Errorf("peeked signal must not re-run the effect, got %d runs", runs)
	}
}

func TestEffectFirstRunPanicPropagates(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("panic during the first run should reach the CreateEffect caller")
		}
	}()

	CreateEffect(func() Cleanup {
		panic("boom")
	})
}

func TestEffectScheduledPanicIsIsolated(t *testing.T) {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	sched := NewScheduler(WithFlushDelay(time.Millisecond), WithLogger(discard))

	count := NewSignal(0)

	bad := CreateEffect(func() Cleanup {
		if count.Get() > 0 {
			panic("boom")
		}
		return nil
	}, WithScheduler(sched))
	defer bad.Dispose()

	var goodRuns atomic.Int32
	good := CreateEffect(func() Cleanup {
		_ = count.Get()
		goodRuns.Add(1)
		return nil
	}, WithScheduler(sched))
	defer good.Dispose()

	count.Set(1)
	sched.WaitForUpdates()

	if goodRuns.Load() != 2 {
		t.Errorf("a panicking sibling must not stall the queue, got %d runs", goodRuns.Load())
	}
}

func TestEffectObserverRestoredAfterPanic(t *testing.T) {
	count := NewSignal(0)

	func() {
		defer func() { recover() }()
		CreateEffect(func() Cleanup {
			panic("boom")
		})
	}()

	// A leaked observer would leave every subsequent read on this
	// goroutine looking tracked.
	if currentObserver() != nil {
		t.Error("current observer should be nil after the effect panicked")
	}
	_ = count.Get()
	count.Set(1)
}

func TestOnMountRunsOnce(t *testing.T) {
	count := NewSignal(0)

	runs := 0
	OnMount(func() {
		runs++
	})

	count.Set(1)
	WaitForUpdates()

	if runs != 1 {
		t.Errorf("OnMount must run exactly once, got %d", runs)
	}
}

func TestOnUpdateSkipsFirstRun(t *testing.T) {
	count := NewSignal(0)

	updates := 0
	e := OnUpdate(
		func() { _ = count.Get() },
		func() { updates++ },
	)
	defer e.Dispose()

	if updates != 0 {
		t.Fatalf("callback must not fire on the first run, got %d", updates)
	}

	count.Set(1)
	WaitForUpdates()

	if updates != 1 {
		t.Errorf("expected 1 update, got %d", updates)
	}
}
