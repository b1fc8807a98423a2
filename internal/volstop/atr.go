// Package volstop implements the ATR-based multi-timeframe trailing stop
// (triple power stop): per-multiplier ratchet stop levels, a dynamic
// volatility multiplier, and an edge-triggered position state machine.
package volstop

import (
	"math"

	"trendlab-enginev1/internal/model"
)

// ATR computes the Average True Range with Wilder smoothing.
// Update is O(1) per bar — the recursion carries only the previous value.
type ATR struct {
	period    int
	count     int
	prevClose float64
	trSum     float64 // accumulates the seed mean
	current   float64
}

// NewATR creates an ATR with the given period (typically 14).
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

// Update feeds one bar and returns the current ATR (0 until seeded).
func (a *ATR) Update(b model.Bar) float64 {
	a.count++

	// True range needs the previous close; the first bar falls back to
	// the plain high-low span.
	tr := b.High - b.Low
	if a.count > 1 {
		if hc := math.Abs(b.High - a.prevClose); hc > tr {
			tr = hc
		}
		if lc := math.Abs(b.Low - a.prevClose); lc > tr {
			tr = lc
		}
	}
	a.prevClose = b.Close

	if a.count <= a.period {
		// Seed with the plain mean of the first period true ranges.
		a.trSum += tr
		if a.count == a.period {
			a.current = a.trSum / float64(a.period)
		}
		return a.current
	}

	// Wilder recursion: ATR = (ATR_prev*(period-1) + TR) / period.
	p := float64(a.period)
	a.current = (a.current*(p-1) + tr) / p
	return a.current
}

// Value returns the current ATR.
func (a *ATR) Value() float64 { return a.current }

// Ready reports whether the seed mean has been established.
func (a *ATR) Ready() bool { return a.count >= a.period }

// StdDev computes the rolling population standard deviation of a value
// stream over a fixed window. Used as the volatility factor feeding the
// dynamic ATR multiplier.
type StdDev struct {
	period int
	buf    []float64
	idx    int
	count  int
}

// NewStdDev creates a rolling stdev over the given window.
func NewStdDev(period int) *StdDev {
	return &StdDev{period: period, buf: make([]float64, period)}
}

// Update feeds one sample and returns the current deviation (0 until the
// window fills).
func (s *StdDev) Update(x float64) float64 {
	s.buf[s.idx] = x
	s.idx = (s.idx + 1) % s.period
	s.count++
	if s.count < s.period {
		return 0
	}

	var sum float64
	for _, v := range s.buf {
		sum += v
	}
	mean := sum / float64(s.period)

	var sq float64
	for _, v := range s.buf {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(s.period))
}

// Ready reports whether the window has filled.
func (s *StdDev) Ready() bool { return s.count >= s.period }

// DynamicMultiplier scales the base ATR multiplier by the ratio of the
// volatility factor to the ATR. A zero ATR or a non-finite ratio falls
// back to the unmodified base multiplier — an explicit stability guard.
func DynamicMultiplier(base, volatilityFactor, atr float64) float64 {
	if atr == 0 || math.IsNaN(volatilityFactor) || math.IsNaN(atr) {
		return base
	}
	m := base * (volatilityFactor / atr)
	if m == 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return base
	}
	return m
}
