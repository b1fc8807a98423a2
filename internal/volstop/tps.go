package volstop

import (
	"fmt"
	"time"

	"trendlab-enginev1/internal/model"
)

// Config holds the construction-time parameters of a TriplePowerStop.
type Config struct {
	ATRLength      int     // true-range window, typically 14
	BaseMultiplier float64 // base ATR multiplier, typically 2.0
	Multipliers    [3]int  // timeframe multipliers, typically 1,2,3
	SmoothPeriod   int     // SMA period for the trend-flag close smoothing
	BaseTF         int     // incoming bar timeframe in seconds
}

// DefaultConfig returns the reference parameterization.
func DefaultConfig(baseTF int) Config {
	return Config{
		ATRLength:      14,
		BaseMultiplier: 2.0,
		Multipliers:    [3]int{1, 2, 3},
		SmoothPeriod:   10,
		BaseTF:         baseTF,
	}
}

// Validate checks the hard configuration bounds.
func (c Config) Validate() error {
	if c.ATRLength < 1 {
		return fmt.Errorf("volstop: atr length %d must be positive", c.ATRLength)
	}
	if c.BaseMultiplier <= 0 {
		return fmt.Errorf("volstop: base multiplier %.4f must be positive", c.BaseMultiplier)
	}
	if c.SmoothPeriod < 1 {
		return fmt.Errorf("volstop: smooth period %d must be positive", c.SmoothPeriod)
	}
	if c.BaseTF < 1 {
		return fmt.Errorf("volstop: base timeframe %d must be positive", c.BaseTF)
	}
	for i, m := range c.Multipliers {
		if m < 1 {
			return fmt.Errorf("volstop: multiplier %d (index %d) must be >= 1", m, i)
		}
	}
	return nil
}

// track maintains one multiplier's stop state: an independent higher-TF
// aggregation bucket plus a StopCalculator, with last-closed-bar
// forward-fill onto the base timeframe (same semantics as mtf.Resolver).
type track struct {
	tf   int // effective timeframe in seconds
	calc *StopCalculator

	bucket  int64
	forming model.Bar
	started bool

	lastStop    float64
	lastUptrend bool
	lastReady   bool
	hasLast     bool
}

func (t *track) update(b model.Bar) (stop float64, uptrend, ready bool) {
	ts := b.TS.Unix()
	bucket := ts - ts%int64(t.tf)

	if t.started && bucket > t.bucket {
		t.lastStop, t.lastUptrend, t.lastReady = t.calc.Update(t.forming)
		t.hasLast = true
		t.started = false
	}

	if !t.started {
		t.bucket = bucket
		t.forming = model.Bar{
			Symbol: b.Symbol,
			TS:     time.Unix(bucket, 0).UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
		t.started = true
	} else {
		if b.High > t.forming.High {
			t.forming.High = b.High
		}
		if b.Low < t.forming.Low {
			t.forming.Low = b.Low
		}
		t.forming.Close = b.Close
		t.forming.Volume += b.Volume
	}

	if !t.hasLast {
		// No closed higher-TF bucket yet: track the close, assume up,
		// report not ready — consumers treat this as a no-op tick.
		return b.Close, true, false
	}
	return t.lastStop, t.lastUptrend, t.lastReady
}

// TriplePowerStop combines three per-multiplier stop tracks with a
// position state machine. One instance per symbol; bars must arrive in
// order and updates must not run concurrently.
type TriplePowerStop struct {
	cfg      Config
	tracks   [3]*track
	position PositionStateMachine
}

// New creates a TriplePowerStop after validating the configuration.
func New(cfg Config) (*TriplePowerStop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tps := &TriplePowerStop{cfg: cfg}
	for i, m := range cfg.Multipliers {
		tps.tracks[i] = &track{
			tf:   cfg.BaseTF * m,
			calc: NewStopCalculator(cfg.ATRLength, cfg.BaseMultiplier, cfg.SmoothPeriod),
		}
	}
	return tps, nil
}

// Config returns the engine's construction-time configuration.
func (t *TriplePowerStop) Config() Config { return t.cfg }

// Update feeds one base-timeframe bar and returns the per-multiplier stop
// levels, trend verdicts, and edge-triggered entry signals. Signals are
// suppressed until every track is past warm-up.
func (t *TriplePowerStop) Update(b model.Bar) model.StopResult {
	res := model.StopResult{
		Symbol: b.Symbol,
		TS:     b.TS,
		Ready:  true,
	}

	for i, tr := range t.tracks {
		stop, up, ready := tr.update(b)
		res.StopLevels[i] = stop
		res.Uptrends[i] = up
		if !ready {
			res.Ready = false
		}
	}

	if !res.Ready {
		// Not yet valid: the state machine must not latch onto warm-up
		// defaults, so it only starts stepping once all tracks are ready.
		res.PositionState = t.position.State()
		return res
	}

	res.GoLong, res.GoShort = t.position.Step(res.Uptrends)
	res.PositionState = t.position.State()
	return res
}

// PositionState returns the current signed position state.
func (t *TriplePowerStop) PositionState() int { return t.position.State() }
