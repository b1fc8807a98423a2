package volstop

import (
	"math"
	"testing"
	"time"

	"trendlab-enginev1/internal/model"
)

func ohlc(i int, o, h, l, c float64) model.Bar {
	return model.Bar{
		Symbol: "EURUSD",
		TS:     time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC).Add(time.Duration(i) * 5 * time.Minute),
		Open:   o,
		High:   h,
		Low:    l,
		Close:  c,
		Volume: 100,
	}
}

func TestATR_SeedIsMeanOfTrueRanges(t *testing.T) {
	a := NewATR(3)

	// First bar has no previous close: TR = high - low.
	a.Update(ohlc(0, 11, 12, 10, 11)) // TR = 2
	if a.Ready() {
		t.Error("expected not ready before period bars")
	}
	a.Update(ohlc(1, 12, 13, 11, 12)) // TR = max(2, |13-11|, |11-11|) = 2
	v := a.Update(ohlc(2, 13, 14, 12, 13)) // TR = max(2, |14-12|, |12-12|) = 2

	if !a.Ready() {
		t.Error("expected ready at period bars")
	}
	if math.Abs(v-2) > 1e-12 {
		t.Errorf("expected seed ATR 2, got %.6f", v)
	}
}

func TestATR_WilderRecursion(t *testing.T) {
	a := NewATR(3)
	a.Update(ohlc(0, 11, 12, 10, 11))
	a.Update(ohlc(1, 12, 13, 11, 12))
	a.Update(ohlc(2, 13, 14, 12, 13)) // seeded at 2

	// TR = max(16-12, |16-13|, |12-13|) = 4; ATR = (2*2 + 4)/3.
	v := a.Update(ohlc(3, 13, 16, 12, 15))
	if math.Abs(v-8.0/3.0) > 1e-12 {
		t.Errorf("expected ATR 8/3, got %.9f", v)
	}
}

func TestATR_GapUsesPrevClose(t *testing.T) {
	a := NewATR(2)
	a.Update(ohlc(0, 10, 11, 9, 10))
	// Gap up: span is only 1 but |high - prevClose| = 10.
	a.Update(ohlc(1, 20, 21, 20, 20))
	// seed = (2 + 10) / 2 = 6
	if math.Abs(a.Value()-6) > 1e-12 {
		t.Errorf("expected seed 6 with gap TR, got %.6f", a.Value())
	}
}

func TestStdDev_PopulationWindow(t *testing.T) {
	s := NewStdDev(4)
	if v := s.Update(2); v != 0 {
		t.Errorf("expected 0 before the window fills, got %.6f", v)
	}
	s.Update(4)
	s.Update(4)
	v := s.Update(6)
	// mean 4, squared deviations 4+0+0+4, population variance 2.
	if math.Abs(v-math.Sqrt2) > 1e-12 {
		t.Errorf("expected sqrt(2), got %.9f", v)
	}
	if !s.Ready() {
		t.Error("expected ready after 4 samples")
	}
}

func TestDynamicMultiplier_Fallbacks(t *testing.T) {
	if m := DynamicMultiplier(2, 0.5, 0); m != 2 {
		t.Errorf("zero ATR must fall back to base, got %.4f", m)
	}
	if m := DynamicMultiplier(2, math.NaN(), 1); m != 2 {
		t.Errorf("NaN volatility must fall back to base, got %.4f", m)
	}
	if m := DynamicMultiplier(2, 0, 1); m != 2 {
		t.Errorf("zero product must fall back to base, got %.4f", m)
	}
	if m := DynamicMultiplier(2, 1, 4); math.Abs(m-0.5) > 1e-12 {
		t.Errorf("expected 2*(1/4)=0.5, got %.6f", m)
	}
}
