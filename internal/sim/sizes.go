package sim

import (
	"sort"
	"sync"
)

// SizeList collects final fire sizes from concurrently completing scenarios.
// Values are kept sorted so percentile queries need no extra pass.
type SizeList struct {
	mu     sync.Mutex
	values []float64
}

// Add inserts a value in sorted position.
func (l *SizeList) Add(v float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := sort.SearchFloat64s(l.values, v)
	l.values = append(l.values, 0)
	copy(l.values[i+1:], l.values[i:])
	l.values[i] = v
}

// Values returns a sorted copy of the collected values.
func (l *SizeList) Values() []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]float64, len(l.values))
	copy(out, l.values)
	return out
}

// Len reports how many values have been collected.
func (l *SizeList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.values)
}

// Clear discards all collected values.
func (l *SizeList) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values = l.values[:0]
}

// insertSorted inserts v into an already-sorted slice, returning the slice.
func insertSorted(values []float64, v float64) []float64 {
	i := sort.SearchFloat64s(values, v)
	values = append(values, 0)
	copy(values[i+1:], values[i:])
	values[i] = v
	return values
}
