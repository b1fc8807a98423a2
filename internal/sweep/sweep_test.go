package sweep

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"trendlab-enginev1/internal/laguerre"
	"trendlab-enginev1/internal/model"
	"trendlab-enginev1/internal/volstop"
)

func historyBars(n int) []model.Bar {
	bars := make([]model.Bar, 0, n)
	t0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		// A rise, a crash, and a recovery — enough structure to flip trends.
		close := 100 + 20*math.Sin(float64(i)/15) + float64(i)*0.01
		bars = append(bars, model.Bar{
			Symbol: "EURUSD",
			TS:     t0.Add(time.Duration(i) * 300 * time.Second),
			Open:   close,
			High:   close + 0.5,
			Low:    close - 0.5,
			Close:  close,
			Volume: 100,
		})
	}
	return bars
}

func writeGrid(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grid.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGrid_ExpandCrossesAllAxes(t *testing.T) {
	path := writeGrid(t, `
base_tf: 300
filter:
  lengths: [5, 10]
  orders: [2]
  adaptive: false
stop:
  atr_lengths: [7, 14]
`)
	spec, err := LoadGrid(path)
	if err != nil {
		t.Fatal(err)
	}
	combos, skipped, err := spec.Expand()
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 0 {
		t.Errorf("expected no skipped combos, got %d", skipped)
	}
	if len(combos) != 4 {
		t.Fatalf("expected 2*2=4 combos, got %d", len(combos))
	}
	for i, c := range combos {
		if c.Index != i {
			t.Errorf("combo %d: expected index %d, got %d", i, i, c.Index)
		}
		if c.Stop.BaseTF != 300 {
			t.Errorf("combo %d: expected base TF 300, got %d", i, c.Stop.BaseTF)
		}
	}
}

func TestGrid_InvalidAxesAreSkipped(t *testing.T) {
	path := writeGrid(t, `
filter:
  lengths: [2, 10]
  orders: [4]
  adaptive: false
`)
	spec, _ := LoadGrid(path)
	combos, skipped, err := spec.Expand()
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 1 {
		t.Errorf("expected length=2 to be skipped, got %d skips", skipped)
	}
	if len(combos) != 1 {
		t.Errorf("expected 1 valid combo, got %d", len(combos))
	}
}

func TestGrid_AllInvalidFails(t *testing.T) {
	path := writeGrid(t, `
filter:
  lengths: [1]
  adaptive: false
`)
	spec, _ := LoadGrid(path)
	if _, _, err := spec.Expand(); err == nil {
		t.Error("expected error when every combo is invalid")
	}
}

func TestGrid_UnknownModeFails(t *testing.T) {
	path := writeGrid(t, `
filter:
  adaptive: true
  smooth_modes: [hull]
`)
	spec, _ := LoadGrid(path)
	if _, _, err := spec.Expand(); err == nil {
		t.Error("expected error for unknown smooth mode")
	}
}

func TestRunner_DeterministicAcrossWorkerCounts(t *testing.T) {
	path := writeGrid(t, `
base_tf: 300
filter:
  lengths: [4, 6, 8]
  orders: [2, 3]
  adaptive: false
stop:
  atr_lengths: [3, 5]
`)
	spec, _ := LoadGrid(path)
	combos, _, err := spec.Expand()
	if err != nil {
		t.Fatal(err)
	}
	bars := historyBars(500)

	serial := &Runner{BaseTF: 300, Workers: 1}
	parallel := &Runner{BaseTF: 300, Workers: 4}

	rs, err := serial.Run(context.Background(), combos, bars)
	if err != nil {
		t.Fatal(err)
	}
	rp, err := parallel.Run(context.Background(), combos, bars)
	if err != nil {
		t.Fatal(err)
	}

	if len(rs) != len(combos) || len(rp) != len(combos) {
		t.Fatalf("expected %d results, got %d / %d", len(combos), len(rs), len(rp))
	}
	for i := range rs {
		if rs[i].Combo.Index != i || rp[i].Combo.Index != i {
			t.Fatalf("result %d out of combo order", i)
		}
		if rs[i].NetPnL != rp[i].NetPnL || rs[i].LongSignals != rp[i].LongSignals ||
			rs[i].ShortSigs != rp[i].ShortSigs || rs[i].TrendFlips != rp[i].TrendFlips ||
			rs[i].StopReadyBars != rp[i].StopReadyBars || rs[i].AvgStopDist != rp[i].AvgStopDist {
			t.Fatalf("result %d differs across worker counts: %+v vs %+v", i, rs[i], rp[i])
		}
	}
}

func TestRunner_EvaluatesHistory(t *testing.T) {
	combos := []Combo{{
		Index:  0,
		Filter: mustFilterCfg(),
		Stop:   mustStopCfg(),
	}}
	bars := historyBars(800)

	evaluated := 0
	r := &Runner{BaseTF: 300, Workers: 2, OnEvaluated: func(Result) { evaluated++ }}
	results, err := r.Run(context.Background(), combos, bars)
	if err != nil {
		t.Fatal(err)
	}
	res := results[0]
	if res.Err != nil {
		t.Fatalf("evaluation failed: %v", res.Err)
	}
	if res.Bars != 800 {
		t.Errorf("expected 800 bars processed, got %d", res.Bars)
	}
	if res.LongSignals == 0 && res.ShortSigs == 0 {
		t.Error("expected at least one signal over an oscillating history")
	}
	if res.TrendFlips == 0 {
		t.Error("expected trend flips over an oscillating history")
	}
	if res.StopReadyBars == 0 {
		t.Error("expected converged stop bars over 800 bars")
	}
	if res.StopReadyBars >= res.Bars {
		t.Errorf("stop warm-up bars must not count as ready: %d of %d", res.StopReadyBars, res.Bars)
	}
	if res.AvgStopDist <= 0 {
		t.Errorf("expected a positive mean stop distance, got %v", res.AvgStopDist)
	}
	if evaluated != 1 {
		t.Errorf("expected 1 OnEvaluated callback, got %d", evaluated)
	}
}

func TestRunner_CancelStopsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{BaseTF: 300, Workers: 2}
	combos := []Combo{
		{Index: 0, Filter: mustFilterCfg(), Stop: mustStopCfg()},
		{Index: 1, Filter: mustFilterCfg(), Stop: mustStopCfg()},
	}
	results, err := r.Run(ctx, combos, historyBars(100))
	// Either the feed loop observed the cancellation, or every fed combo
	// aborted inside its evaluation.
	if err == nil && results[0].Err == nil {
		t.Error("expected a cancelled sweep to surface the context error")
	}
}

func mustFilterCfg() laguerre.Config {
	return laguerre.Config{Length: 5, Order: 2, Price: model.PriceClose, Adaptive: false}
}

func mustStopCfg() volstop.Config {
	return volstop.Config{
		ATRLength:      3,
		BaseMultiplier: 2.0,
		Multipliers:    [3]int{1, 2, 3},
		SmoothPeriod:   3,
		BaseTF:         300,
	}
}

func TestRunner_NoCombos(t *testing.T) {
	r := &Runner{BaseTF: 300}
	if _, err := r.Run(context.Background(), nil, historyBars(10)); err == nil {
		t.Error("expected error for an empty grid")
	}
}
