package redis

import (
	"errors"
	"testing"
	"time"
)

var errWrite = errors.New("write failed")

func tripBreaker(cb *CircuitBreaker, failures int) {
	for i := 0; i < failures; i++ {
		cb.Execute(func() error { return errWrite })
	}
}

func TestBreaker_ClosedByDefault(t *testing.T) {
	cb := NewCircuitBreaker(4, 100*time.Millisecond)
	if got := cb.CurrentState(); got != StateClosed {
		t.Errorf("new breaker state = %v, want closed", got)
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Errorf("closed breaker must pass writes through: %v", err)
	}
}

func TestBreaker_TripsAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(4, 100*time.Millisecond)

	tripBreaker(cb, 3)
	if got := cb.CurrentState(); got != StateClosed {
		t.Fatalf("below threshold: state = %v, want closed", got)
	}

	if err := cb.Execute(func() error { return errWrite }); err != errWrite {
		t.Fatalf("tripping call must surface the write error, got %v", err)
	}
	if got := cb.CurrentState(); got != StateOpen {
		t.Fatalf("at threshold: state = %v, want open", got)
	}

	// Open breaker fails fast without calling fn.
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if err != ErrCircuitOpen {
		t.Errorf("open breaker returned %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("open breaker must not invoke the write")
	}
}

func TestBreaker_ProbeClosesAfterCooldown(t *testing.T) {
	cb := NewCircuitBreaker(2, 40*time.Millisecond)
	tripBreaker(cb, 2)

	time.Sleep(50 * time.Millisecond)

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe after cooldown must run: %v", err)
	}
	if got := cb.CurrentState(); got != StateClosed {
		t.Errorf("after clean probe: state = %v, want closed", got)
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	cb := NewCircuitBreaker(2, 40*time.Millisecond)
	tripBreaker(cb, 2)

	time.Sleep(50 * time.Millisecond)
	cb.Execute(func() error { return errWrite })

	if got := cb.CurrentState(); got != StateOpen {
		t.Errorf("after failed probe: state = %v, want open", got)
	}
}

func TestBreaker_SuccessClearsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, 100*time.Millisecond)

	tripBreaker(cb, 2)
	cb.Execute(func() error { return nil })
	tripBreaker(cb, 2)

	if got := cb.CurrentState(); got != StateClosed {
		t.Errorf("interleaved success must reset the count: state = %v, want closed", got)
	}
}

func TestBreaker_TransitionCallback(t *testing.T) {
	cb := NewCircuitBreaker(1, 40*time.Millisecond)
	var seen []State
	cb.OnStateChange = func(from, to State) { seen = append(seen, to) }

	tripBreaker(cb, 1)
	time.Sleep(50 * time.Millisecond)
	cb.Execute(func() error { return nil })

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transition %d = %v, want %v", i, seen[i], want[i])
		}
	}
}
