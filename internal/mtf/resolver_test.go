package mtf

import (
	"testing"
	"time"

	"trendlab-enginev1/internal/laguerre"
	"trendlab-enginev1/internal/model"
)

func minuteBar(i int, close float64) model.Bar {
	return model.Bar{
		Symbol: "EURUSD",
		TS:     time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
		Open:   close,
		High:   close + 0.0001,
		Low:    close - 0.0001,
		Close:  close,
		Volume: 100,
	}
}

func filterCfg() laguerre.Config {
	return laguerre.Config{
		Length:   3,
		Order:    2,
		Price:    model.PriceClose,
		Adaptive: false,
	}
}

func TestResolver_Passthrough(t *testing.T) {
	// Higher TF at or below the base degenerates to the live filter.
	r, err := New(60, 0, filterCfg())
	if err != nil {
		t.Fatal(err)
	}
	if !r.Passthrough() {
		t.Fatal("expected passthrough for higherTF=0")
	}
	if r.TF() != 60 {
		t.Errorf("expected effective TF 60, got %d", r.TF())
	}

	res, ok := r.Update(minuteBar(0, 1.1))
	if !ok {
		t.Error("passthrough must always return a live result")
	}
	if res.TF != 60 || res.Symbol != "EURUSD" {
		t.Errorf("unexpected result identity: TF=%d symbol=%s", res.TF, res.Symbol)
	}
}

func TestResolver_ForwardFillWaitsForClosedBucket(t *testing.T) {
	r, err := New(60, 300, filterCfg())
	if err != nil {
		t.Fatal(err)
	}
	if r.Passthrough() {
		t.Fatal("expected aggregation for higherTF=300")
	}

	// First 5 minute-bars fill the first 5m bucket: nothing closed yet.
	for i := 0; i < 5; i++ {
		if _, ok := r.Update(minuteBar(i, 1.1)); ok {
			t.Fatalf("bar %d: no closed bucket yet, expected ok=false", i)
		}
	}

	// Bar 5 lands in the next bucket: the first bucket closes and its
	// filter output forward-fills from here on.
	res, ok := r.Update(minuteBar(5, 1.2))
	if !ok {
		t.Fatal("expected a resolved result once the first bucket closed")
	}
	if res.TF != 300 {
		t.Errorf("expected resolved TF 300, got %d", res.TF)
	}

	// Bars 6..9 are inside the second bucket: the fill must not change.
	for i := 6; i < 10; i++ {
		next, ok := r.Update(minuteBar(i, 1.3))
		if !ok {
			t.Fatalf("bar %d: forward fill lost", i)
		}
		if next.Value != res.Value || !next.TS.Equal(res.TS) {
			t.Fatalf("bar %d: fill changed inside a forming bucket: %+v vs %+v", i, next, res)
		}
	}

	// Bar 10 closes the second bucket: the fill advances.
	next, ok := r.Update(minuteBar(10, 1.3))
	if !ok {
		t.Fatal("expected a resolved result")
	}
	if next.TS.Equal(res.TS) {
		t.Error("fill did not advance after the second bucket closed")
	}
}

func TestResolver_AggregatedFilterMatchesDirectFeed(t *testing.T) {
	// Feeding 1m bars through the resolver must drive its filter exactly
	// like feeding the equivalent closed 5m bars into a bare filter.
	r, _ := New(60, 300, filterCfg())
	direct, _ := laguerre.New(filterCfg())

	closes := []float64{1.10, 1.11, 1.12, 1.13, 1.14, 1.15, 1.16, 1.17, 1.18, 1.19}
	var last model.FilterResult
	for i, c := range closes {
		last, _ = r.Update(minuteBar(i, c))
	}

	// Bucket 0 closed with close=1.14 (last bar of the first five).
	agg := minuteBar(0, 1.14)
	agg.High = 1.14 + 0.0001
	agg.Low = 1.10 - 0.0001
	want := direct.Update(agg)
	if last.Value != want.Value {
		t.Errorf("resolver filter diverged from direct feed: %.9f vs %.9f", last.Value, want.Value)
	}
}

func TestResolver_RejectsBadBase(t *testing.T) {
	if _, err := New(0, 300, filterCfg()); err == nil {
		t.Error("expected error for non-positive base timeframe")
	}
}
