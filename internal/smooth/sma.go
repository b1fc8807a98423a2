package smooth

// SMA is the arithmetic mean of the last period samples.
// Uses a preallocated circular buffer with a maintained running sum
// for a zero-allocation O(1) hot path.
type SMA struct {
	period int
	buf    []float64
	idx    int
	count  int
	sum    float64
}

// NewSMA creates an SMA smoother with the given period.
func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
		buf:    make([]float64, period),
	}
}

func (s *SMA) Apply(x float64) float64 {
	if s.count >= s.period {
		s.sum -= s.buf[s.idx]
	}
	s.buf[s.idx] = x
	s.sum += x
	s.idx = (s.idx + 1) % s.period
	s.count++

	n := s.count
	if n > s.period {
		n = s.period
	}
	return s.sum / float64(n)
}

func (s *SMA) Ready() bool { return s.count >= s.period }

func (s *SMA) Reset() {
	s.idx = 0
	s.count = 0
	s.sum = 0
	for i := range s.buf {
		s.buf[i] = 0
	}
}
