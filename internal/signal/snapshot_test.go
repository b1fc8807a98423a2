package signal

import (
	"encoding/json"
	"testing"
)

func TestSnapshot_RestoredFilterMatchesOriginal(t *testing.T) {
	cfg := testConfig()
	orig, _ := NewEngine(cfg)

	for i := 0; i < 40; i++ {
		orig.Process(makeTFBar("EURUSD", i, 100+float64(i)))
		orig.Process(makeTFBar("GBPUSD", i, 500-float64(i)))
	}

	snap := SnapshotEngine(orig)
	if len(snap.Symbols) != 2 {
		t.Fatalf("expected 2 symbol snapshots, got %d", len(snap.Symbols))
	}
	if snap.Version != 1 || snap.BaseTF != cfg.BaseTF {
		t.Errorf("bad snapshot header: %+v", snap)
	}

	// Round-trip through JSON, as the stores do.
	data, err := snap.JSON()
	if err != nil {
		t.Fatal(err)
	}
	var decoded EngineSnapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	restored, err := RestoreEngine(cfg, &decoded)
	if err != nil {
		t.Fatal(err)
	}

	// The filter recursion must continue identically on both engines.
	for i := 40; i < 80; i++ {
		bar := makeTFBar("EURUSD", i, 100+float64(i))
		fa, _, _, okA := orig.Process(bar)
		fb, _, _, okB := restored.Process(bar)
		if !okA || !okB {
			t.Fatalf("bar %d: unexpected rejection (orig=%v restored=%v)", i, okA, okB)
		}
		if fa.Value != fb.Value || fa.Gamma != fb.Gamma || fa.Trend != fb.Trend {
			t.Fatalf("bar %d: restored engine diverged: %+v vs %+v", i, fa, fb)
		}
	}
}

func TestSnapshot_OrderingSurvivesRestore(t *testing.T) {
	cfg := testConfig()
	orig, _ := NewEngine(cfg)
	for i := 0; i < 10; i++ {
		orig.Process(makeTFBar("EURUSD", i, 100))
	}

	restored, err := RestoreEngine(cfg, SnapshotEngine(orig))
	if err != nil {
		t.Fatal(err)
	}

	// A bar older than the checkpointed position must still be rejected.
	if _, _, _, ok := restored.Process(makeTFBar("EURUSD", 4, 100)); ok {
		t.Error("restored engine accepted a bar behind its checkpoint")
	}
	if _, _, _, ok := restored.Process(makeTFBar("EURUSD", 10, 100)); !ok {
		t.Error("restored engine rejected a fresh bar")
	}
}

func TestSnapshot_MismatchColdStarts(t *testing.T) {
	cfg := testConfig()
	orig, _ := NewEngine(cfg)
	for i := 0; i < 10; i++ {
		orig.Process(makeTFBar("EURUSD", i, 100))
	}
	snap := SnapshotEngine(orig)

	// Changed filter shape: restore must not fail, the symbol cold-starts.
	changed := cfg
	changed.Filter.Length = 5
	restored, err := RestoreEngine(changed, snap)
	if err != nil {
		t.Fatalf("mismatched snapshot must cold-start, not fail: %v", err)
	}
	if _, _, _, ok := restored.Process(makeTFBar("EURUSD", 0, 100)); !ok {
		t.Error("cold-started symbol rejected its first bar")
	}
}

func TestSnapshot_ConcurrentWithProcess(t *testing.T) {
	// Mirrors the live service: one goroutine feeds bars while another
	// takes periodic checkpoints of the same engine. Run with -race.
	e, err := NewEngine(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 300; i++ {
			e.Process(makeTFBar("EURUSD", i, 100+float64(i)*0.5))
			e.Process(makeTFBar("GBPUSD", i, 400-float64(i)*0.5))
		}
	}()

	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		snap := SnapshotEngine(e)
		if len(snap.Symbols) > 2 {
			t.Fatalf("snapshot carries %d symbols, expected at most 2", len(snap.Symbols))
		}
		for _, ss := range snap.Symbols {
			if ss.Symbol != "EURUSD" && ss.Symbol != "GBPUSD" {
				t.Fatalf("unexpected symbol %q in snapshot", ss.Symbol)
			}
		}
	}

	// The final checkpoint must restore into an engine that keeps going.
	restored, err := RestoreEngine(testConfig(), SnapshotEngine(e))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, ok := restored.Process(makeTFBar("EURUSD", 300, 250)); !ok {
		t.Error("restored engine rejected the next bar")
	}
}

func TestSnapshot_NilMeansColdStart(t *testing.T) {
	e, err := RestoreEngine(testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, ok := e.Process(makeTFBar("EURUSD", 0, 100)); !ok {
		t.Error("cold-started engine rejected its first bar")
	}
}
