// Package pulsetest provides test support for code built on the pulse
// reactive engine.
//
// The two building blocks are Recorder, a concurrency-safe value log for
// asserting what an effect observed across runs, and Settle, which waits
// for a scheduler to drain with a test-friendly timeout:
//
//	count := pulse.NewSignal(0)
//	rec := pulsetest.NewRecorder[int]()
//	e := pulse.CreateEffect(func() pulse.Cleanup {
//	    rec.Record(count.Get())
//	    return nil
//	})
//	defer e.Dispose()
//
//	count.Set(1)
//	pulsetest.Settle(t)
//	// rec.Values() == []int{0, 1}
package pulsetest
