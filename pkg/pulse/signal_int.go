package pulse

// IntSignal wraps Signal[int] with counter-style convenience methods.
type IntSignal struct {
	*Signal[int]
}

// NewIntSignal creates an IntSignal with the given initial value.
func NewIntSignal(initial int) *IntSignal {
	return &IntSignal{NewSignal(initial)}
}

// Inc increments the value by 1.
func (s *IntSignal) Inc() {
	s.Update(func(n int) int { return n + 1 })
}

// Dec decrements the value by 1.
func (s *IntSignal) Dec() {
	s.Update(func(n int) int { return n - 1 })
}

// Add adds n to the value.
func (s *IntSignal) Add(n int) {
	s.Update(func(v int) int { return v + n })
}

// Sub subtracts n from the value.
func (s *IntSignal) Sub(n int) {
	s.Update(func(v int) int { return v - n })
}
