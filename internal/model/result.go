package model

import (
	"encoding/json"
	"time"
)

// Trend is the per-bar trend classification emitted by the filter engine.
type Trend int8

const (
	TrendNeutral Trend = 0
	TrendUp      Trend = 1
	TrendDown    Trend = -1
)

func (t Trend) String() string {
	switch t {
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	}
	return "neutral"
}

// FilterResult holds one bar's output from a Laguerre filter engine.
type FilterResult struct {
	Symbol string    `json:"symbol"`
	TF     int       `json:"tf"` // timeframe in seconds
	TS     time.Time `json:"ts"`
	Value  float64   `json:"value"` // filtered price
	Trend  Trend     `json:"trend"`
	Gamma  float64   `json:"gamma"` // gamma used for this bar
	Ready  bool      `json:"ready"` // false during warm-up
}

// StreamKey returns the Redis stream key: "laguerre:{TF}s:{symbol}".
func (r *FilterResult) StreamKey() string {
	return "laguerre:" + Itoa(r.TF) + "s:" + r.Symbol
}

// PubSubChannel returns the real-time publish channel for this result.
func (r *FilterResult) PubSubChannel() string {
	return "pub:laguerre:" + Itoa(r.TF) + "s:" + r.Symbol
}

// JSON returns the JSON-encoded result.
func (r *FilterResult) JSON() []byte {
	data, _ := json.Marshal(r)
	return data
}

// StopResult holds one bar's output from the triple-power-stop engine.
type StopResult struct {
	Symbol        string     `json:"symbol"`
	TS            time.Time  `json:"ts"`
	StopLevels    [3]float64 `json:"stop_levels"` // one per timeframe multiplier
	Uptrends      [3]bool    `json:"uptrends"`
	GoLong        bool       `json:"go_long"`
	GoShort       bool       `json:"go_short"`
	PositionState int        `json:"position_state"` // +1 long, -1 short, 0 initial
	Ready         bool       `json:"ready"`
}

// StreamKey returns the Redis stream key: "tps:{symbol}".
func (r *StopResult) StreamKey() string {
	return "tps:" + r.Symbol
}

// PubSubChannel returns the real-time publish channel for this result.
func (r *StopResult) PubSubChannel() string {
	return "pub:tps:" + r.Symbol
}

// JSON returns the JSON-encoded result.
func (r *StopResult) JSON() []byte {
	data, _ := json.Marshal(r)
	return data
}

// Signal is an edge-triggered entry signal emitted by the stop engine.
type Signal struct {
	Symbol string    `json:"symbol"`
	Side   string    `json:"side"` // "LONG" or "SHORT"
	TS     time.Time `json:"ts"`
	Price  float64   `json:"price"`
	Reason string    `json:"reason"`
}

// JSON returns the JSON-encoded signal.
func (s *Signal) JSON() []byte {
	data, _ := json.Marshal(s)
	return data
}
