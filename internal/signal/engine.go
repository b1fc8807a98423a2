// Package signal orchestrates the per-symbol indicator engines: the
// adaptive Laguerre trend filter (optionally resolved against a higher
// timeframe) and the triple-power-stop state machine. It consumes
// finalized TF bars and emits filter results, stop results, and
// edge-triggered entry signals.
package signal

import (
	"context"
	"log"
	"sync"
	"time"

	"trendlab-enginev1/internal/laguerre"
	"trendlab-enginev1/internal/model"
	"trendlab-enginev1/internal/mtf"
	"trendlab-enginev1/internal/volstop"
)

// EngineConfig specifies the engines to run for every symbol.
type EngineConfig struct {
	BaseTF   int             // timeframe of incoming finalized bars (seconds)
	Filter   laguerre.Config // Laguerre filter parameters
	HigherTF int             // filter resolution timeframe; <= BaseTF means "current"
	Stop     volstop.Config  // triple-power-stop parameters
}

// Validate checks all nested configurations at construction time.
func (c EngineConfig) Validate() error {
	if err := c.Filter.Validate(); err != nil {
		return err
	}
	return c.Stop.Validate()
}

// symbolEngines holds live engine instances for one symbol.
type symbolEngines struct {
	resolver *mtf.Resolver
	tps      *volstop.TriplePowerStop
	lastTS   time.Time
}

// Engine computes filter and stop outputs across symbols.
// Process and SnapshotEngine serialize on an internal mutex, so a
// checkpoint can be taken while the bar loop is running. Bars for one
// symbol must still arrive from a single producer in timestamp order.
type Engine struct {
	cfg EngineConfig

	mu    sync.Mutex // guards state and every engine instance inside it
	state map[string]*symbolEngines

	// OnRejectedBar is called when an out-of-order or malformed bar is
	// dropped at the source boundary (optional, for metrics).
	OnRejectedBar func()
}

// NewEngine creates an engine after validating the configuration.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:   cfg,
		state: make(map[string]*symbolEngines, 16),
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() EngineConfig { return e.cfg }

// Process feeds one finalized TF bar through both engines for its symbol.
// ok is false when the bar was rejected at the boundary (malformed or
// out of order) — engines are never fed undefined input.
func (e *Engine) Process(tfb model.TFBar) (fr model.FilterResult, sr model.StopResult, signals []model.Signal, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bar := tfb.Bar()
	if err := bar.Validate(); err != nil {
		log.Printf("[signal] rejecting bar: %v", err)
		if e.OnRejectedBar != nil {
			e.OnRejectedBar()
		}
		return fr, sr, nil, false
	}

	se, exists := e.state[tfb.Symbol]
	if !exists {
		var err error
		se, err = e.createSymbolEngines()
		if err != nil {
			// Config was validated at construction; this cannot happen
			// for a well-formed engine, but never feed a nil instance.
			log.Printf("[signal] engine create for %s failed: %v", tfb.Symbol, err)
			return fr, sr, nil, false
		}
		e.state[tfb.Symbol] = se
	}

	// Ordering boundary: a single engine instance is a strictly
	// sequential state machine over non-decreasing timestamps.
	if bar.TS.Before(se.lastTS) {
		log.Printf("[signal] rejecting out-of-order bar %s @ %v (last %v)", bar.Symbol, bar.TS, se.lastTS)
		if e.OnRejectedBar != nil {
			e.OnRejectedBar()
		}
		return fr, sr, nil, false
	}
	se.lastTS = bar.TS

	fr, _ = se.resolver.Update(bar)
	fr.Symbol = bar.Symbol
	if fr.TF == 0 {
		fr.TF = se.resolver.TF()
	}

	sr = se.tps.Update(bar)

	if sr.GoLong {
		signals = append(signals, model.Signal{
			Symbol: bar.Symbol,
			Side:   "LONG",
			TS:     bar.TS,
			Price:  bar.Close,
			Reason: "all timeframes uptrend",
		})
	}
	if sr.GoShort {
		signals = append(signals, model.Signal{
			Symbol: bar.Symbol,
			Side:   "SHORT",
			TS:     bar.TS,
			Price:  bar.Close,
			Reason: "all timeframes downtrend",
		})
	}
	return fr, sr, signals, true
}

// Run consumes TF bars and emits outputs. Forming bars are skipped —
// engines only ever see closed buckets. Blocks until ctx is done or the
// input channel closes. Sends are non-blocking: a slow consumer drops
// rather than stalling the bar loop.
func (e *Engine) Run(ctx context.Context, barCh <-chan model.TFBar,
	filterCh chan<- model.FilterResult, stopCh chan<- model.StopResult, signalCh chan<- model.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case tfb, okCh := <-barCh:
			if !okCh {
				return
			}
			if tfb.Forming {
				continue
			}
			fr, sr, signals, ok := e.Process(tfb)
			if !ok {
				continue
			}
			if filterCh != nil {
				select {
				case filterCh <- fr:
				default:
				}
			}
			if stopCh != nil {
				select {
				case stopCh <- sr:
				default:
				}
			}
			for _, s := range signals {
				if signalCh == nil {
					break
				}
				select {
				case signalCh <- s:
				default:
					log.Printf("[signal] signal channel full, dropping %s %s", s.Side, s.Symbol)
				}
			}
		}
	}
}

// createSymbolEngines creates fresh engine instances for one symbol.
func (e *Engine) createSymbolEngines() (*symbolEngines, error) {
	resolver, err := mtf.New(e.cfg.BaseTF, e.cfg.HigherTF, e.cfg.Filter)
	if err != nil {
		return nil, err
	}
	tps, err := volstop.New(e.cfg.Stop)
	if err != nil {
		return nil, err
	}
	return &symbolEngines{resolver: resolver, tps: tps}, nil
}
