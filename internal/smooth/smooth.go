// Package smooth provides the moving-average primitives shared by the
// Laguerre filter engine and the volatility-stop engine.
//
// All smoothers are streaming: Apply feeds one sample and returns the
// current smoothed value in O(1) amortized time (O(period) for the
// window-based modes). Callers must gate on Ready() before treating the
// output as valid — the engines enforce this via minimum-bar gating.
package smooth

import "fmt"

// Mode selects a smoothing strategy.
type Mode int

const (
	ModeSMA Mode = iota
	ModeEMA
	ModeWilder
	ModeLWMA
	ModeMedian
)

// ParseMode maps a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "sma", "":
		return ModeSMA, nil
	case "ema":
		return ModeEMA, nil
	case "wilder":
		return ModeWilder, nil
	case "lwma":
		return ModeLWMA, nil
	case "median":
		return ModeMedian, nil
	}
	return 0, fmt.Errorf("unknown smooth mode %q", s)
}

func (m Mode) String() string {
	switch m {
	case ModeSMA:
		return "sma"
	case ModeEMA:
		return "ema"
	case ModeWilder:
		return "wilder"
	case ModeLWMA:
		return "lwma"
	case ModeMedian:
		return "median"
	}
	return "unknown"
}

// Smoother is the streaming interface implemented by all strategies.
type Smoother interface {
	// Apply feeds one sample and returns the current smoothed value.
	Apply(x float64) float64

	// Ready reports whether at least period samples have been seen.
	Ready() bool

	// Reset clears all accumulated state.
	Reset()
}

// New creates a smoother for the given mode and period.
func New(mode Mode, period int) Smoother {
	switch mode {
	case ModeEMA:
		return NewEMA(period)
	case ModeWilder:
		// Wilder smoothing is an EMA over 2*period-1 (slower decay).
		return NewEMA(2*period - 1)
	case ModeLWMA:
		return NewLWMA(period)
	case ModeMedian:
		return NewMedian(period)
	default:
		return NewSMA(period)
	}
}
