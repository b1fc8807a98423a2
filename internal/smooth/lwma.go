package smooth

// LWMA is the linearly weighted moving average: the most recent sample
// carries weight period, the oldest weight 1, normalized by the weight sum.
type LWMA struct {
	period int
	buf    []float64
	idx    int
	count  int
}

// NewLWMA creates an LWMA smoother with the given period.
func NewLWMA(period int) *LWMA {
	return &LWMA{
		period: period,
		buf:    make([]float64, period),
	}
}

func (l *LWMA) Apply(x float64) float64 {
	l.buf[l.idx] = x
	l.idx = (l.idx + 1) % l.period
	l.count++

	n := l.count
	if n > l.period {
		n = l.period
	}

	// Walk back from the newest sample: weight n for newest, 1 for oldest.
	var valueSum, weightSum float64
	pos := l.idx - 1
	for i := 0; i < n; i++ {
		if pos < 0 {
			pos += l.period
		}
		w := float64(n - i)
		valueSum += l.buf[pos] * w
		weightSum += w
		pos--
	}
	return valueSum / weightSum
}

func (l *LWMA) Ready() bool { return l.count >= l.period }

func (l *LWMA) Reset() {
	l.idx = 0
	l.count = 0
	for i := range l.buf {
		l.buf[i] = 0
	}
}
