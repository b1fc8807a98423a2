// Package sweep runs parameter sweeps: it evaluates a grid of filter and
// stop parameterizations against a fixed bar history and reports per-combo
// statistics. Each combination gets private engine instances, so workers
// share nothing but the read-only bar slice.
package sweep

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"trendlab-enginev1/internal/laguerre"
	"trendlab-enginev1/internal/model"
	"trendlab-enginev1/internal/signal"
	"trendlab-enginev1/internal/volstop"
)

// Combo is one parameter combination to evaluate.
type Combo struct {
	Index  int
	Filter laguerre.Config
	Stop   volstop.Config
}

// Result holds the evaluation outcome for one combination.
type Result struct {
	Combo Combo

	Bars        int
	TrendFlips  int
	LongSignals int
	ShortSigs   int

	// Stop-engine coverage: bars with a converged stop, and the mean
	// distance from close to the base-track stop over those bars. A tight
	// average marks a parameterization that stops out on noise.
	StopReadyBars int
	AvgStopDist   float64

	// Naive mark-to-market of alternating entries at signal prices,
	// closing any open position at the final bar.
	NetPnL float64

	Elapsed time.Duration
	Err     error
}

// Runner evaluates combos against a shared bar history.
type Runner struct {
	BaseTF   int
	HigherTF int
	Workers  int

	// OnEvaluated is called after each combo finishes (for metrics).
	OnEvaluated func(r Result)
}

// Run evaluates all combos over bars using a worker pool. Results are
// returned indexed by combo order regardless of completion order, so a
// sweep is deterministic for a fixed input. Bars must be sorted by
// timestamp and are never mutated.
func (r *Runner) Run(ctx context.Context, combos []Combo, bars []model.Bar) ([]Result, error) {
	if len(combos) == 0 {
		return nil, fmt.Errorf("sweep: no combinations to evaluate")
	}
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(combos) {
		workers = len(combos)
	}

	log.Printf("[sweep] evaluating %d combinations over %d bars with %d workers",
		len(combos), len(bars), workers)

	results := make([]Result, len(combos))
	jobCh := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobCh {
				results[idx] = r.evaluate(ctx, combos[idx], bars)
				if r.OnEvaluated != nil {
					r.OnEvaluated(results[idx])
				}
			}
		}()
	}

	// Feed jobs, stopping early on cancellation.
	var runErr error
feed:
	for i := range combos {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break feed
		case jobCh <- i:
		}
	}
	close(jobCh)
	wg.Wait()

	return results, runErr
}

// evaluate runs one combo's private engines over the full history.
func (r *Runner) evaluate(ctx context.Context, combo Combo, bars []model.Bar) Result {
	start := time.Now()
	res := Result{Combo: combo}

	eng, err := signal.NewEngine(signal.EngineConfig{
		BaseTF:   r.BaseTF,
		Filter:   combo.Filter,
		HigherTF: r.HigherTF,
		Stop:     combo.Stop,
	})
	if err != nil {
		res.Err = err
		return res
	}

	var (
		prevTrend   model.Trend
		havePrev    bool
		position    int // +1 long, -1 short, 0 flat
		entry       float64
		lastClose   float64
		stopDistSum float64
	)

	for i := range bars {
		// Cancellation check amortized over the hot loop.
		if i%4096 == 0 {
			select {
			case <-ctx.Done():
				res.Err = ctx.Err()
				return res
			default:
			}
		}

		b := bars[i]
		tfb := model.TFBar{
			Symbol: b.Symbol, TF: r.BaseTF, TS: b.TS,
			Open: b.Open, High: b.High, Low: b.Low, Close: b.Close,
			Volume: b.Volume, Count: 1,
		}
		fr, sr, signals, ok := eng.Process(tfb)
		if !ok {
			continue
		}
		res.Bars++
		lastClose = b.Close

		if fr.Ready {
			if havePrev && fr.Trend != prevTrend && fr.Trend != model.TrendNeutral {
				res.TrendFlips++
			}
			prevTrend = fr.Trend
			havePrev = true
		}
		if sr.Ready {
			res.StopReadyBars++
			stopDistSum += math.Abs(b.Close - sr.StopLevels[0])
		}

		for _, s := range signals {
			switch s.Side {
			case "LONG":
				res.LongSignals++
				if position == -1 {
					res.NetPnL += entry - s.Price
				}
				position = 1
				entry = s.Price
			case "SHORT":
				res.ShortSigs++
				if position == 1 {
					res.NetPnL += s.Price - entry
				}
				position = -1
				entry = s.Price
			}
		}
	}

	if res.StopReadyBars > 0 {
		res.AvgStopDist = stopDistSum / float64(res.StopReadyBars)
	}

	// Close any open position at the last bar.
	switch position {
	case 1:
		res.NetPnL += lastClose - entry
	case -1:
		res.NetPnL += entry - lastClose
	}

	res.Elapsed = time.Since(start)
	return res
}
