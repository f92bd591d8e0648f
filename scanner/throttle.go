package scanner

import "sync"

// DefaultQuantum is the number of progress steps a run reports at most.
const DefaultQuantum = 1000

// Throttle forwards progress only when the quantized value grows, which
// bounds the number of reports independently of the record count. Late
// updates carrying an older value are dropped.
type Throttle struct {
	mu      sync.Mutex
	quantum int
	last    int
	emit    func(fraction float64)
}

// NewThrottle returns a throttle calling emit at most quantum+1 times.
func NewThrottle(quantum int, emit func(fraction float64)) *Throttle {
	if quantum <= 0 {
		quantum = DefaultQuantum
	}
	return &Throttle{quantum: quantum, last: -1, emit: emit}
}

// Update reports fraction and returns whether it was forwarded.
func (t *Throttle) Update(fraction float64) bool {
	fraction = min(max(fraction, 0), 1)
	step := int(fraction * float64(t.quantum))

	t.mu.Lock()
	defer t.mu.Unlock()

	if step <= t.last {
		return false
	}
	t.last = step
	t.emit(fraction)
	return true
}
