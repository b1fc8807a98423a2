package smooth

import "sort"

// Median is the moving median of the last period samples. Odd periods
// return the middle element, even periods the mean of the two middles.
type Median struct {
	period int
	buf    []float64
	sorted []float64 // scratch, reused across calls
	idx    int
	count  int
}

// NewMedian creates a median smoother with the given period.
func NewMedian(period int) *Median {
	return &Median{
		period: period,
		buf:    make([]float64, period),
		sorted: make([]float64, 0, period),
	}
}

func (m *Median) Apply(x float64) float64 {
	m.buf[m.idx] = x
	m.idx = (m.idx + 1) % m.period
	m.count++

	n := m.count
	if n > m.period {
		n = m.period
	}

	m.sorted = m.sorted[:0]
	if m.count >= m.period {
		m.sorted = append(m.sorted, m.buf...)
	} else {
		m.sorted = append(m.sorted, m.buf[:n]...)
	}
	sort.Float64s(m.sorted)

	if n%2 == 1 {
		return m.sorted[n/2]
	}
	return (m.sorted[n/2-1] + m.sorted[n/2]) / 2
}

func (m *Median) Ready() bool { return m.count >= m.period }

func (m *Median) Reset() {
	m.idx = 0
	m.count = 0
	for i := range m.buf {
		m.buf[i] = 0
	}
}
