package signal

import (
	"math"
	"testing"
	"time"

	"trendlab-enginev1/internal/laguerre"
	"trendlab-enginev1/internal/model"
	"trendlab-enginev1/internal/volstop"
)

func testConfig() EngineConfig {
	return EngineConfig{
		BaseTF: 300,
		Filter: laguerre.Config{
			Length:   3,
			Order:    2,
			Price:    model.PriceClose,
			Adaptive: false,
		},
		HigherTF: 0,
		Stop: volstop.Config{
			ATRLength:      2,
			BaseMultiplier: 2.0,
			Multipliers:    [3]int{1, 2, 3},
			SmoothPeriod:   2,
			BaseTF:         300,
		},
	}
}

func makeTFBar(symbol string, i int, close float64) model.TFBar {
	return model.TFBar{
		Symbol: symbol,
		TF:     300,
		TS:     time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * 300 * time.Second),
		Open:   close,
		High:   close + 1,
		Low:    close - 1,
		Close:  close,
		Volume: 100,
		Count:  5,
	}
}

func TestEngine_LongSignalOnSteadyRise(t *testing.T) {
	e, err := NewEngine(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	longs := 0
	var lastFR model.FilterResult
	for i := 0; i < 60; i++ {
		fr, _, signals, ok := e.Process(makeTFBar("EURUSD", i, 100+float64(i)))
		if !ok {
			t.Fatalf("bar %d: unexpected rejection", i)
		}
		lastFR = fr
		for _, s := range signals {
			if s.Side != "LONG" {
				t.Fatalf("bar %d: unexpected %s signal on a steady rise", i, s.Side)
			}
			if s.Symbol != "EURUSD" || s.Price != 100+float64(i) {
				t.Fatalf("bar %d: bad signal identity: %+v", i, s)
			}
			longs++
		}
	}
	if longs != 1 {
		t.Errorf("expected exactly one long entry, got %d", longs)
	}
	if lastFR.Trend != model.TrendUp || !lastFR.Ready {
		t.Errorf("expected a ready up-trend filter result, got %+v", lastFR)
	}
	if lastFR.TF != 300 {
		t.Errorf("expected filter TF 300, got %d", lastFR.TF)
	}
}

func TestEngine_RejectsOutOfOrderBars(t *testing.T) {
	e, _ := NewEngine(testConfig())

	rejected := 0
	e.OnRejectedBar = func() { rejected++ }

	if _, _, _, ok := e.Process(makeTFBar("EURUSD", 5, 100)); !ok {
		t.Fatal("first bar must be accepted")
	}
	if _, _, _, ok := e.Process(makeTFBar("EURUSD", 3, 100)); ok {
		t.Error("older bar must be rejected")
	}
	if rejected != 1 {
		t.Errorf("expected 1 rejection callback, got %d", rejected)
	}

	// Same timestamp is a recompute, not a violation.
	if _, _, _, ok := e.Process(makeTFBar("EURUSD", 5, 101)); !ok {
		t.Error("same-timestamp bar must be accepted")
	}
}

func TestEngine_RejectsMalformedBars(t *testing.T) {
	e, _ := NewEngine(testConfig())

	bad := makeTFBar("EURUSD", 0, 100)
	bad.High, bad.Low = bad.Low, bad.High
	if _, _, _, ok := e.Process(bad); ok {
		t.Error("inverted high/low must be rejected")
	}

	nan := makeTFBar("EURUSD", 1, 100)
	nan.Close = math.NaN()
	if _, _, _, ok := e.Process(nan); ok {
		t.Error("non-finite price must be rejected")
	}
}

func TestEngine_SymbolsAreIsolated(t *testing.T) {
	e, _ := NewEngine(testConfig())

	// Interleave a rising symbol with a falling one: each must reach its
	// own verdict with no cross-talk.
	for i := 0; i < 60; i++ {
		e.Process(makeTFBar("EURUSD", i, 100+float64(i)))
		e.Process(makeTFBar("GBPUSD", i, 500-float64(i)*3))
	}

	fr1, _, _, _ := e.Process(makeTFBar("EURUSD", 60, 161))
	fr2, _, _, _ := e.Process(makeTFBar("GBPUSD", 60, 317))
	if fr1.Trend != model.TrendUp {
		t.Errorf("EURUSD: expected up trend, got %s", fr1.Trend)
	}
	if fr2.Trend != model.TrendDown {
		t.Errorf("GBPUSD: expected down trend, got %s", fr2.Trend)
	}
}

func TestEngine_HigherTFResolution(t *testing.T) {
	cfg := testConfig()
	cfg.HigherTF = 900
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}

	var lastFR model.FilterResult
	for i := 0; i < 60; i++ {
		fr, _, _, ok := e.Process(makeTFBar("EURUSD", i, 100+float64(i)))
		if !ok {
			t.Fatalf("bar %d: unexpected rejection", i)
		}
		lastFR = fr
	}
	if lastFR.TF != 900 {
		t.Errorf("expected resolved filter TF 900, got %d", lastFR.TF)
	}
	// Higher-TF buckets are 900s aligned: the fill timestamp must be too.
	if lastFR.TS.Unix()%900 != 0 {
		t.Errorf("fill timestamp %v not aligned to the higher timeframe", lastFR.TS)
	}
}
