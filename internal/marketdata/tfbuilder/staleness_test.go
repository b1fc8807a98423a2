package tfbuilder

import (
	"testing"
	"time"

	"trendlab-enginev1/internal/model"
)

func TestBuilder_StaleBar_Rejected(t *testing.T) {
	b := New([]int{300})
	// Default StaleTolerance = 2s
	outCh := make(chan model.TFBar, 5000)

	now := time.Now().UTC()
	currentBucket := now.Unix() - (now.Unix() % 300)

	staleCount := 0
	b.OnStaleBar = func() { staleCount++ }

	// First, send a bar at the current bucket to establish state
	b.process(model.Bar{
		Symbol: "EURUSD",
		TS:     time.Unix(currentBucket+5, 0).UTC(),
		Open:   100, High: 110, Low: 90, Close: 105, Volume: 1,
	}, outCh)

	// Advance the bucket to the next one to establish the "current" forming state
	b.process(model.Bar{
		Symbol: "EURUSD",
		TS:     time.Unix(currentBucket+305, 0).UTC(),
		Open:   200, High: 210, Low: 190, Close: 205, Volume: 1,
	}, outCh)

	// Drain
	for len(outCh) > 0 {
		<-outCh
	}

	// Now the forming bucket is at currentBucket+300.
	// Send a bar from the PREVIOUS bucket: lag = 300s > 2s tolerance,
	// so it must be rejected.
	b.process(model.Bar{
		Symbol: "EURUSD",
		TS:     time.Unix(currentBucket+10, 0).UTC(),
		Open:   50, High: 60, Low: 40, Close: 55, Volume: 1,
	}, outCh)

	if staleCount != 1 {
		t.Errorf("expected 1 stale bar rejection, got %d", staleCount)
	}

	// Verify no output from the stale bar
	for len(outCh) > 0 {
		tb := <-outCh
		if tb.Open == 50 {
			t.Fatalf("stale bar should not have been processed: %+v", tb)
		}
	}
}

func TestBuilder_StaleBar_WithinTolerance_Accepted(t *testing.T) {
	b := New([]int{300})
	outCh := make(chan model.TFBar, 100)

	now := time.Now().UTC()
	bucket := now.Unix() - (now.Unix() % 300)

	staleCount := 0
	b.OnStaleBar = func() { staleCount++ }

	// Send bar in the current bucket — always accepted (first bar)
	b.process(model.Bar{
		Symbol: "EURUSD",
		TS:     time.Unix(bucket+1, 0).UTC(),
		Open:   100, High: 110, Low: 90, Close: 105, Volume: 1,
	}, outCh)

	if staleCount != 0 {
		t.Errorf("expected 0 stale callbacks, got %d", staleCount)
	}
	if len(outCh) == 0 {
		t.Error("expected forming bar output")
	}
}

func TestBuilder_StaleTolerance_Disabled(t *testing.T) {
	b := New([]int{300})
	b.StaleTolerance = 0 // disable
	outCh := make(chan model.TFBar, 5000)

	staleCount := 0
	b.OnStaleBar = func() { staleCount++ }

	// Establish state at a recent bucket
	now := time.Now().UTC()
	bucket := now.Unix() - (now.Unix() % 300)
	b.process(model.Bar{
		Symbol: "EURUSD",
		TS:     time.Unix(bucket+305, 0).UTC(), // next bucket
		Open:   200, High: 210, Low: 190, Close: 205, Volume: 1,
	}, outCh)
	b.process(model.Bar{
		Symbol: "EURUSD",
		TS:     time.Unix(bucket+605, 0).UTC(), // bucket+600
		Open:   300, High: 310, Low: 290, Close: 305, Volume: 1,
	}, outCh)

	// Now send an old bar — should NOT be rejected since tolerance is disabled
	b.process(model.Bar{
		Symbol: "EURUSD",
		TS:     time.Unix(bucket+1, 0).UTC(), // original bucket, way behind
		Open:   50, High: 60, Low: 40, Close: 55, Volume: 1,
	}, outCh)

	if staleCount != 0 {
		t.Errorf("expected 0 stale callbacks with tolerance disabled, got %d", staleCount)
	}
}
