// Package mtf maps a higher-timeframe Laguerre filter's output onto the
// current (lower) timeframe bar stream.
//
// The resolver owns a private Filter instance driven by bars it aggregates
// at the higher timeframe — explicit composition instead of the classic
// "indicator calls itself on a higher timeframe" pattern, so there is no
// re-entrancy and the dependency direction stays engine → resolver.
package mtf

import (
	"fmt"
	"time"

	"trendlab-enginev1/internal/laguerre"
	"trendlab-enginev1/internal/model"
)

// Resolver forward-fills the most recently *closed* higher-timeframe
// filter output onto each lower-timeframe bar. A bucket closes when a bar
// arrives in a later bucket; a still-forming bucket is never consulted.
type Resolver struct {
	baseTF int // engine's own timeframe in seconds
	tf     int // higher timeframe in seconds
	filter *laguerre.Filter

	// Forming higher-TF bucket state.
	bucket  int64
	forming model.Bar
	started bool

	// Last closed higher-TF output, forward-filled onto lower bars.
	last    model.FilterResult
	hasLast bool
}

// New creates a resolver for the given higher timeframe. A higher
// timeframe at or below the base timeframe is a no-op: bars pass straight
// through to the filter and its live output is returned.
func New(baseTF, higherTF int, cfg laguerre.Config) (*Resolver, error) {
	if baseTF <= 0 {
		return nil, fmt.Errorf("mtf: base timeframe %d must be positive", baseTF)
	}
	f, err := laguerre.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		baseTF: baseTF,
		tf:     higherTF,
		filter: f,
	}, nil
}

// Filter returns the resolver's private filter instance (for checkpointing).
func (r *Resolver) Filter() *laguerre.Filter { return r.filter }

// Passthrough reports whether the resolver degenerates to the base timeframe.
func (r *Resolver) Passthrough() bool { return r.tf <= r.baseTF }

// TF returns the effective timeframe in seconds.
func (r *Resolver) TF() int {
	if r.Passthrough() {
		return r.baseTF
	}
	return r.tf
}

// Update feeds one lower-timeframe bar and returns the resolved
// higher-timeframe output. ok is false until the first higher-TF bucket
// has closed (nothing valid to forward-fill yet).
func (r *Resolver) Update(b model.Bar) (model.FilterResult, bool) {
	if r.Passthrough() {
		res := r.filter.Update(b)
		res.Symbol = b.Symbol
		res.TF = r.baseTF
		return res, true
	}

	ts := b.TS.Unix()
	bucket := ts - ts%int64(r.tf)

	if r.started && bucket > r.bucket {
		// The forming bucket closed strictly before this bar — feed it
		// to the higher-TF filter and remember the output.
		res := r.filter.Update(r.forming)
		res.Symbol = r.forming.Symbol
		res.TF = r.tf
		r.last = res
		r.hasLast = true
		r.started = false
	}

	if !r.started {
		r.bucket = bucket
		r.forming = model.Bar{
			Symbol: b.Symbol,
			TS:     time.Unix(bucket, 0).UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
		r.started = true
	} else {
		// Same bucket — merge OHLCV in O(1).
		if b.High > r.forming.High {
			r.forming.High = b.High
		}
		if b.Low < r.forming.Low {
			r.forming.Low = b.Low
		}
		r.forming.Close = b.Close
		r.forming.Volume += b.Volume
	}

	return r.last, r.hasLast
}
