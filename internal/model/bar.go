package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Bar represents one OHLCV price bar for a single symbol.
// Bars are immutable once produced and must arrive in strictly
// increasing timestamp order per symbol.
type Bar struct {
	Symbol string    `json:"symbol"`
	TS     time.Time `json:"ts"` // bucket start time (UTC)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Key returns the instrument key for this bar.
func (b *Bar) Key() string { return b.Symbol }

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b *Bar) JSON() []byte {
	data, _ := json.Marshal(b)
	return data
}

// Validate rejects malformed bars at the source boundary: NaN/Inf prices
// and inverted high/low never reach the engines.
func (b *Bar) Validate() error {
	for _, p := range [...]float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("bar %s @ %v: non-finite price", b.Symbol, b.TS)
		}
	}
	if b.High < b.Low {
		return fmt.Errorf("bar %s @ %v: high %.5f below low %.5f", b.Symbol, b.TS, b.High, b.Low)
	}
	if b.TS.IsZero() {
		return fmt.Errorf("bar %s: zero timestamp", b.Symbol)
	}
	return nil
}

// PriceMode selects which price a filter engine reads from each bar.
type PriceMode int

const (
	PriceClose PriceMode = iota
	PriceOpen
	PriceHigh
	PriceLow
	PriceMedian   // (high+low)/2
	PriceTypical  // (high+low+close)/3
	PriceWeighted // (high+low+2*close)/4
)

// ParsePriceMode maps a config string to a PriceMode.
func ParsePriceMode(s string) (PriceMode, error) {
	switch s {
	case "close", "":
		return PriceClose, nil
	case "open":
		return PriceOpen, nil
	case "high":
		return PriceHigh, nil
	case "low":
		return PriceLow, nil
	case "median":
		return PriceMedian, nil
	case "typical":
		return PriceTypical, nil
	case "weighted":
		return PriceWeighted, nil
	}
	return 0, fmt.Errorf("unknown price mode %q", s)
}

func (m PriceMode) String() string {
	switch m {
	case PriceClose:
		return "close"
	case PriceOpen:
		return "open"
	case PriceHigh:
		return "high"
	case PriceLow:
		return "low"
	case PriceMedian:
		return "median"
	case PriceTypical:
		return "typical"
	case PriceWeighted:
		return "weighted"
	}
	return "unknown"
}

// Applied returns the bar price selected by mode.
func (b *Bar) Applied(mode PriceMode) float64 {
	switch mode {
	case PriceOpen:
		return b.Open
	case PriceHigh:
		return b.High
	case PriceLow:
		return b.Low
	case PriceMedian:
		return (b.High + b.Low) / 2
	case PriceTypical:
		return (b.High + b.Low + b.Close) / 3
	case PriceWeighted:
		return (b.High + b.Low + 2*b.Close) / 4
	default:
		return b.Close
	}
}
