// Package laguerre implements the multi-order adaptive Laguerre filter:
// a recursive smoothing filter with less lag than classic moving averages,
// whose responsiveness factor (gamma) adapts to recent tracking error.
//
// Each Filter instance is a strictly sequential state machine: bars must
// arrive in non-decreasing timestamp order and no two goroutines may
// update the same instance. Parallelism belongs across instances (e.g.
// one per parameter-sweep worker), never within one.
package laguerre

import (
	"fmt"
	"log"
	"time"

	"trendlab-enginev1/internal/model"
	"trendlab-enginev1/internal/smooth"
)

// Config holds the construction-time parameters of a Filter.
type Config struct {
	Length int             // adaptive window length, [3,200]
	Order  int             // cascaded filter stages, [1,10]
	Price  model.PriceMode // applied price

	Adaptive           bool        // adaptive gamma vs fixed 10/(Length+9)
	AdaptiveSmooth     int         // smoothing period for the raw ratio, [1,50]
	AdaptiveSmoothMode smooth.Mode // strategy used to smooth the raw ratio

	MinGamma float64 // [0.001,0.1]
	MaxGamma float64 // [0.9,0.999], must exceed MinGamma
}

// DefaultConfig returns the reference parameterization.
func DefaultConfig() Config {
	return Config{
		Length:             10,
		Order:              4,
		Price:              model.PriceClose,
		Adaptive:           true,
		AdaptiveSmooth:     5,
		AdaptiveSmoothMode: smooth.ModeMedian,
		MinGamma:           0.01,
		MaxGamma:           0.99,
	}
}

// Validate checks the hard configuration bounds. Violations are fatal at
// construction time — the engine refuses to start rather than silently
// clamp values that change behavior behind the caller's back.
func (c Config) Validate() error {
	if c.Length < 3 || c.Length > 200 {
		return fmt.Errorf("laguerre: length %d outside [3,200]", c.Length)
	}
	if c.Order < 1 || c.Order > 10 {
		return fmt.Errorf("laguerre: order %d outside [1,10]", c.Order)
	}
	if c.Adaptive {
		if c.AdaptiveSmooth < 1 || c.AdaptiveSmooth > 50 {
			return fmt.Errorf("laguerre: adaptive smooth %d outside [1,50]", c.AdaptiveSmooth)
		}
		if c.MinGamma >= c.MaxGamma {
			return fmt.Errorf("laguerre: min gamma %.4f must be below max gamma %.4f", c.MinGamma, c.MaxGamma)
		}
	}
	return nil
}

// Filter maintains the per-order recursive cells and produces the
// filtered value, trend classification, and gamma used for each bar.
type Filter struct {
	cfg        Config
	fixedGamma float64

	state *FilterState
	gamma *GammaEstimator

	bar       int // distinct timestamps seen
	value     float64
	prevValue float64 // value at the previous distinct timestamp
	trend     model.Trend
	gammaUsed float64
	lastTS    time.Time
}

// New creates a Filter after validating the configuration.
func New(cfg Config) (*Filter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Order > 6 {
		// Accepted, but high orders risk overshoot on sharp reversals.
		log.Printf("[laguerre] order=%d above 6, output may overshoot", cfg.Order)
	}

	f := &Filter{
		cfg:        cfg,
		fixedGamma: 10.0 / float64(cfg.Length+9),
		state:      newFilterState(cfg.Order),
	}
	if cfg.Adaptive {
		f.gamma = newGammaEstimator(cfg.Length, cfg.AdaptiveSmooth, cfg.AdaptiveSmoothMode)
	}
	return f, nil
}

// Config returns the filter's construction-time configuration.
func (f *Filter) Config() Config { return f.cfg }

// Update feeds one bar and returns the current output. Calling Update
// again with the same timestamp recomputes that bar against the same
// previous-cell snapshot (partial history refresh); a newer timestamp
// advances the recursion. Older timestamps must be rejected upstream.
func (f *Filter) Update(b model.Bar) model.FilterResult {
	price := b.Applied(f.cfg.Price)

	newBar := f.state.beginBar(b.TS)
	if newBar {
		f.bar++
		f.prevValue = f.value
		f.lastTS = b.TS
	}

	// Tracking error feeds the adaptive window once the filter has run
	// for Length bars. Recomputes of the same bar must not double-feed.
	if f.cfg.Adaptive && newBar && f.bar > f.cfg.Length {
		raw := f.gamma.Update(abs(price - f.prevValue))
		if f.bar >= 2*f.cfg.Length {
			f.gammaUsed = clamp(raw, f.cfg.MinGamma, f.cfg.MaxGamma)
		} else {
			// Not enough history for a meaningful ratio yet.
			f.gammaUsed = f.fixedGamma
		}
	} else if !f.cfg.Adaptive {
		f.gammaUsed = f.fixedGamma
	} else if f.gammaUsed == 0 {
		f.gammaUsed = f.fixedGamma
	}

	f.recompute(price)

	// Re-evaluated on recomputes too: prevValue is fixed for the
	// timestamp, so a refreshed close updates the trend immediately.
	if f.Ready() && f.bar > 1 {
		// Trend persists on ties — no spurious flips when the filtered
		// value is unchanged bar to bar.
		if f.value > f.prevValue {
			f.trend = model.TrendUp
		} else if f.value < f.prevValue {
			f.trend = model.TrendDown
		}
	}

	return f.result(b.TS)
}

// recompute runs the cell recursion for the current bar. prev cells were
// snapshotted by beginBar, so running this twice for one timestamp is safe.
func (f *Filter) recompute(price float64) {
	cur, prev := f.state.cur, f.state.prev

	if f.bar <= f.cfg.Order {
		// Initialization: seed every cell from price, never from a zero prior.
		for i := range cur {
			cur[i] = price
		}
	} else {
		gam := 1 - f.gammaUsed
		cur[0] = (1-gam)*price + gam*prev[0]
		for i := 1; i < len(cur); i++ {
			cur[i] = -gam*cur[i-1] + prev[i-1] + gam*prev[i]
		}
	}

	f.value = smooth.TriMAGen(cur, f.cfg.Order)
}

// Value returns the current filtered value.
func (f *Filter) Value() float64 { return f.value }

// Trend returns the current trend classification.
func (f *Filter) Trend() model.Trend { return f.trend }

// Gamma returns the gamma used for the current bar.
func (f *Filter) Gamma() float64 { return f.gammaUsed }

// Bars returns the number of distinct timestamps processed.
func (f *Filter) Bars() int { return f.bar }

// Ready reports whether the output is past warm-up: the adaptive window
// needs 2*Length bars and the cells need Order bars of seeding on top.
// The flag is monotonically non-decreasing over bar index.
func (f *Filter) Ready() bool {
	return f.bar >= 2*f.cfg.Length+f.cfg.Order
}

func (f *Filter) result(ts time.Time) model.FilterResult {
	trend := f.trend
	if !f.Ready() {
		trend = model.TrendNeutral
	}
	return model.FilterResult{
		TS:    ts,
		Value: f.value,
		Trend: trend,
		Gamma: f.gammaUsed,
		Ready: f.Ready(),
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
