package laguerre

import "time"

// FilterState holds the recursive filter cells for one engine instance.
// Each cell is double-buffered: cur is this bar's value, prev is the value
// from the previous distinct timestamp. The snapshot from cur to prev
// happens exactly once per new timestamp, so recomputing the same bar
// (e.g. during a partial history refresh) cannot corrupt the recursion.
type FilterState struct {
	cur    []float64
	prev   []float64
	lastTS time.Time
}

func newFilterState(order int) *FilterState {
	return &FilterState{
		cur:  make([]float64, order),
		prev: make([]float64, order),
	}
}

// beginBar rolls cur into prev iff ts is a new timestamp.
// Returns true when the timestamp advanced.
func (s *FilterState) beginBar(ts time.Time) bool {
	if !ts.After(s.lastTS) {
		return false // same bar recompute — keep prev untouched
	}
	copy(s.prev, s.cur)
	s.lastTS = ts
	return true
}

// Cells returns the current cell values. The slice is owned by the state
// and must not be mutated by callers.
func (s *FilterState) Cells() []float64 { return s.cur }
