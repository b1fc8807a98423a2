package bus

import (
	"context"
	"testing"
	"time"

	"trendlab-enginev1/internal/model"
)

func TestFanOut_BroadcastsToAll(t *testing.T) {
	fo := New(10)
	out1 := fo.Subscribe()
	out2 := fo.Subscribe()

	input := make(chan model.Bar, 10)
	ctx, cancel := context.WithCancel(context.Background())
	go fo.Run(ctx, input)

	bar := model.Bar{
		Symbol: "EURUSD",
		Open:   100,
		High:   110,
		Low:    90,
		Close:  105,
	}

	input <- bar
	time.Sleep(50 * time.Millisecond)

	select {
	case b := <-out1:
		if b.Symbol != "EURUSD" {
			t.Errorf("out1: expected symbol EURUSD, got %s", b.Symbol)
		}
	case <-time.After(time.Second):
		t.Fatal("out1: timed out waiting for bar")
	}

	select {
	case b := <-out2:
		if b.Symbol != "EURUSD" {
			t.Errorf("out2: expected symbol EURUSD, got %s", b.Symbol)
		}
	case <-time.After(time.Second):
		t.Fatal("out2: timed out waiting for bar")
	}

	cancel()
}
