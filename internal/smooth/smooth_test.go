package smooth

import (
	"math"
	"testing"
)

func approx(t *testing.T, got, want float64, msg string) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s: expected %.9f, got %.9f", msg, want, got)
	}
}

func TestSMA_RunningMean(t *testing.T) {
	s := NewSMA(3)

	approx(t, s.Apply(1), 1, "sample 1")
	approx(t, s.Apply(2), 1.5, "sample 2")
	if s.Ready() {
		t.Error("expected not ready before 3 samples")
	}
	approx(t, s.Apply(3), 2, "sample 3")
	if !s.Ready() {
		t.Error("expected ready after 3 samples")
	}
	// Window slides: (2+3+4)/3.
	approx(t, s.Apply(4), 3, "sample 4")
}

func TestSMA_Reset(t *testing.T) {
	s := NewSMA(2)
	s.Apply(10)
	s.Apply(20)
	s.Reset()
	if s.Ready() {
		t.Error("expected not ready after reset")
	}
	approx(t, s.Apply(5), 5, "first sample after reset")
}

func TestEMA_SeedAndDecay(t *testing.T) {
	e := NewEMA(3) // alpha = 0.5

	approx(t, e.Apply(2), 2, "first sample seeds directly")
	approx(t, e.Apply(4), 3, "2 + 0.5*(4-2)")
	approx(t, e.Apply(6), 4.5, "3 + 0.5*(6-3)")
	if !e.Ready() {
		t.Error("expected ready after 3 samples")
	}
}

func TestWilder_IsSlowEMA(t *testing.T) {
	// Wilder over period p maps to EMA over 2p-1: alpha = 2/(2p) = 1/p.
	w := New(ModeWilder, 5)

	approx(t, w.Apply(10), 10, "seed")
	approx(t, w.Apply(20), 12, "10 + 0.2*(20-10)")
}

func TestLWMA_LinearWeights(t *testing.T) {
	l := NewLWMA(3)

	approx(t, l.Apply(1), 1, "single sample")
	// Newest weight 2, oldest weight 1: (2*2 + 1*1)/3.
	approx(t, l.Apply(2), 5.0/3.0, "two samples")
	// (3*3 + 2*2 + 1*1)/6.
	approx(t, l.Apply(3), 14.0/6.0, "full window")
	// Window slid to 2,3,4: (4*3 + 3*2 + 2*1)/6.
	approx(t, l.Apply(4), 20.0/6.0, "slid window")
}

func TestMedian_OddAndEvenWindows(t *testing.T) {
	m := NewMedian(3)

	approx(t, m.Apply(5), 5, "single sample")
	// Two samples: mean of the middles.
	approx(t, m.Apply(1), 3, "even partial window")
	approx(t, m.Apply(3), 3, "odd full window")
	// Window slid to 1,3,9.
	approx(t, m.Apply(9), 3, "slid window")
}

func TestNew_ModeDispatch(t *testing.T) {
	cases := []struct {
		mode Mode
		want string
	}{
		{ModeSMA, "sma"},
		{ModeEMA, "ema"},
		{ModeWilder, "wilder"},
		{ModeLWMA, "lwma"},
		{ModeMedian, "median"},
	}
	for _, c := range cases {
		if c.mode.String() != c.want {
			t.Errorf("mode %d: expected %q, got %q", c.mode, c.want, c.mode.String())
		}
		if New(c.mode, 5) == nil {
			t.Errorf("mode %s: New returned nil", c.want)
		}
	}

	if _, err := ParseMode("vwap"); err == nil {
		t.Error("expected error for unknown mode")
	}
	m, err := ParseMode("")
	if err != nil || m != ModeSMA {
		t.Errorf("empty mode should default to sma, got %v (%v)", m, err)
	}
}

func TestTriMAGen_PeriodOneIsIdentity(t *testing.T) {
	approx(t, TriMAGen([]float64{1, 2, 3}, 1), 3, "period 1 returns last element")
}

func TestTriMAGen_KnownValues(t *testing.T) {
	// period 2: len1=1, len2=2 -> mean of the last two elements.
	approx(t, TriMAGen([]float64{2, 4}, 2), 3, "period 2")

	// period 3: len1=2, len2=2 -> (SMA(3,4) + SMA(2,3)) / 2.
	approx(t, TriMAGen([]float64{1, 2, 3, 4}, 3), 3, "period 3")
}

func TestTriMAGen_ConstantInput(t *testing.T) {
	vals := []float64{7, 7, 7, 7, 7}
	for p := 1; p <= 5; p++ {
		approx(t, TriMAGen(vals, p), 7, "constant input is a fixed point")
	}
}

func TestTriMAGen_Degenerate(t *testing.T) {
	approx(t, TriMAGen(nil, 3), 0, "empty input")
	approx(t, TriMAGen([]float64{1}, 0), 0, "non-positive period")
}

func TestSnapshot_RoundTrip(t *testing.T) {
	kinds := []Mode{ModeSMA, ModeEMA, ModeLWMA, ModeMedian}
	samples := []float64{3, 1, 4, 1, 5, 9, 2, 6}

	for _, mode := range kinds {
		orig := New(mode, 4).(Snapshottable)
		for _, x := range samples {
			orig.Apply(x)
		}

		restored, err := FromSnapshot(orig.Snapshot())
		if err != nil {
			t.Fatalf("%s: restore failed: %v", mode, err)
		}

		// Both must produce identical values on the same continuation.
		for _, x := range []float64{5, 3, 5} {
			a, b := orig.Apply(x), restored.Apply(x)
			if a != b {
				t.Errorf("%s: diverged after restore: %.9f vs %.9f", mode, a, b)
			}
		}
	}
}

func TestSnapshot_UnknownKind(t *testing.T) {
	if _, err := FromSnapshot(Snapshot{Kind: "hull", Period: 5}); err == nil {
		t.Error("expected error for unknown snapshot kind")
	}
}
