package smooth

// EMA is the exponential moving average: ema += alpha*(x - ema) with
// alpha = 2/(period+1). The first sample seeds the average directly.
// O(1) per update — no window storage needed.
type EMA struct {
	period  int
	alpha   float64
	current float64
	count   int
}

// NewEMA creates an EMA smoother with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1),
	}
}

func (e *EMA) Apply(x float64) float64 {
	e.count++
	if e.count == 1 {
		e.current = x
		return e.current
	}
	e.current += e.alpha * (x - e.current)
	return e.current
}

func (e *EMA) Ready() bool { return e.count >= e.period }

func (e *EMA) Reset() {
	e.current = 0
	e.count = 0
}
