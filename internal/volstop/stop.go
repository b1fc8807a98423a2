package volstop

import (
	"trendlab-enginev1/internal/model"
	"trendlab-enginev1/internal/smooth"
)

// StopCalculator derives one timeframe's trailing stop level. The stop
// ratchets: once established it only moves in the position's favor until
// the close crosses it, at which point it re-anchors on the other side.
type StopCalculator struct {
	atr      *ATR
	vol      *StdDev
	closeSMA smooth.Smoother
	baseMult float64

	stop    float64
	hasStop bool
	uptrend bool
}

// NewStopCalculator builds a calculator with the given ATR window,
// base multiplier, and close-smoothing period for the trend flag.
func NewStopCalculator(atrLength int, baseMult float64, smoothPeriod int) *StopCalculator {
	return &StopCalculator{
		atr:      NewATR(atrLength),
		vol:      NewStdDev(atrLength),
		closeSMA: smooth.NewSMA(smoothPeriod),
		baseMult: baseMult,
	}
}

// Update feeds one bar and returns the stop level, the uptrend flag, and
// whether the calculator is past warm-up. During warm-up the stop tracks
// the close and the trend flag defaults to true, mirroring the values a
// consumer would see before the window fills; callers treat !ready as a
// no-op tick.
func (c *StopCalculator) Update(b model.Bar) (stop float64, uptrend, ready bool) {
	atr := c.atr.Update(b)
	volFactor := c.vol.Update(b.Close)
	smaClose := c.closeSMA.Apply(b.Close)

	if !c.atr.Ready() || !c.vol.Ready() || !c.closeSMA.Ready() {
		c.stop = b.Close
		c.uptrend = true
		return c.stop, c.uptrend, false
	}

	mult := DynamicMultiplier(c.baseMult, volFactor, atr)
	longStop := b.Close - atr*mult
	shortStop := b.Close + atr*mult

	switch {
	case !c.hasStop:
		c.stop = longStop
		c.hasStop = true
	case b.Close > c.stop:
		// Long side: trail upward only.
		if longStop > c.stop {
			c.stop = longStop
		}
	default:
		// Short side: trail downward only.
		if shortStop < c.stop {
			c.stop = shortStop
		}
	}

	c.uptrend = smaClose > c.stop
	return c.stop, c.uptrend, true
}

// Stop returns the current stop level.
func (c *StopCalculator) Stop() float64 { return c.stop }

// Uptrend returns the current trend flag.
func (c *StopCalculator) Uptrend() bool { return c.uptrend }
