package volstop

import (
	"testing"
)

func TestStopCalculator_WarmupNotReady(t *testing.T) {
	c := NewStopCalculator(3, 2.0, 2)

	for i := 0; i < 2; i++ {
		close := 100.0 + float64(i)
		stop, up, ready := c.Update(ohlc(i, close, close+1, close-1, close))
		if ready {
			t.Fatalf("bar %d: expected not ready during warm-up", i)
		}
		if stop != close || !up {
			t.Errorf("bar %d: warm-up must track the close with up default, got stop=%.4f up=%v", i, stop, up)
		}
	}
}

func TestStopCalculator_LongRatchet(t *testing.T) {
	c := NewStopCalculator(3, 2.0, 2)

	var lastStop float64
	seen := false
	for i := 0; i < 30; i++ {
		close := 100.0 + float64(i)
		stop, up, ready := c.Update(ohlc(i, close, close+1, close-1, close))
		if !ready {
			continue
		}
		if stop >= close {
			t.Fatalf("bar %d: long stop %.4f must sit below the close %.4f", i, stop, close)
		}
		if seen && stop < lastStop {
			t.Fatalf("bar %d: long stop ratcheted down: %.4f -> %.4f", i, lastStop, stop)
		}
		lastStop, seen = stop, true
		if i > 10 && !up {
			t.Errorf("bar %d: expected uptrend on a steady rise", i)
		}
	}
	if !seen {
		t.Fatal("calculator never became ready")
	}
}

func TestStopCalculator_ReanchorsOnBreak(t *testing.T) {
	c := NewStopCalculator(3, 2.0, 2)

	close := 100.0
	i := 0
	for ; i < 20; i++ {
		close += 1
		c.Update(ohlc(i, close, close+1, close-1, close))
	}
	longStop := c.Stop()

	// Crash far through the stop: the short side takes over and the stop
	// must only trail downward from here.
	var lastStop float64
	seen := false
	for ; i < 45; i++ {
		close -= 10
		stop, _, ready := c.Update(ohlc(i, close, close+1, close-1, close))
		if !ready {
			t.Fatalf("bar %d: lost readiness after warm-up", i)
		}
		if close < stop {
			if seen && stop > lastStop {
				t.Fatalf("bar %d: short stop ratcheted up: %.4f -> %.4f", i, lastStop, stop)
			}
			lastStop, seen = stop, true
		}
	}
	if !seen {
		t.Fatal("close never broke below the long stop")
	}
	if c.Stop() >= longStop {
		t.Errorf("stop %.4f should have re-anchored below the old long stop %.4f", c.Stop(), longStop)
	}
	if c.Uptrend() {
		t.Error("expected downtrend after a sustained crash")
	}
}
