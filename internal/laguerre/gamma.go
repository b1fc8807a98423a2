package laguerre

import (
	"trendlab-enginev1/internal/smooth"
)

// GammaEstimator derives the raw adaptive gamma from recent filter
// tracking error using an efficiency ratio: the normalized position of
// the current |price - filtered_prev| within its min-max range over the
// last length samples. The raw ratio is smoothed by the configured
// smoothing strategy; clamping to [MinGamma, MaxGamma] is the engine's
// job and happens after smoothing.
type GammaEstimator struct {
	length   int
	diffs    []float64 // ring of the last length tracking errors
	idx      int
	count    int
	smoother smooth.Smoother
}

// newGammaEstimator creates an estimator over a length-sized error window,
// smoothing the raw ratio with the given mode over smoothPeriod samples.
func newGammaEstimator(length, smoothPeriod int, mode smooth.Mode) *GammaEstimator {
	return &GammaEstimator{
		length:   length,
		diffs:    make([]float64, length),
		smoother: smooth.New(mode, smoothPeriod),
	}
}

// Update feeds one tracking-error sample and returns the smoothed raw
// gamma. When the window is degenerate (max == min, e.g. constant price)
// the efficiency ratio is 0 by policy — never NaN.
func (g *GammaEstimator) Update(diff float64) float64 {
	g.diffs[g.idx] = diff
	g.idx = (g.idx + 1) % g.length
	g.count++

	n := g.count
	if n > g.length {
		n = g.length
	}

	minDiff, maxDiff := g.diffs[0], g.diffs[0]
	for _, d := range g.diffs[:n] {
		if d < minDiff {
			minDiff = d
		}
		if d > maxDiff {
			maxDiff = d
		}
	}

	eff := 0.0
	if maxDiff > minDiff {
		eff = (diff - minDiff) / (maxDiff - minDiff)
	}
	return g.smoother.Apply(eff)
}

// Samples returns how many error samples have been recorded.
func (g *GammaEstimator) Samples() int { return g.count }
