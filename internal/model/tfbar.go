package model

import (
	"encoding/json"
	"time"
)

// TFBar represents a resampled OHLCV bar for a dynamic timeframe.
// TF is the timeframe duration in seconds (e.g., 3600 = 1 hour).
type TFBar struct {
	Symbol  string    `json:"symbol"`
	TF      int       `json:"tf"`      // timeframe in seconds
	TS      time.Time `json:"ts"`      // bucket start time (UTC, TF-aligned)
	Open    float64   `json:"open"`
	High    float64   `json:"high"`
	Low     float64   `json:"low"`
	Close   float64   `json:"close"`
	Volume  float64   `json:"volume"`
	Count   int       `json:"count"`   // number of base bars merged
	Forming bool      `json:"forming"` // true if bucket is still open
}

// Key returns the instrument key.
func (b *TFBar) Key() string { return b.Symbol }

// StreamKey returns the Redis stream key: "bar:{TF}s:{symbol}".
func (b *TFBar) StreamKey() string {
	return "bar:" + Itoa(b.TF) + "s:" + b.Symbol
}

// JSON returns the JSON-encoded TF bar.
func (b *TFBar) JSON() []byte {
	data, _ := json.Marshal(b)
	return data
}

// Bar converts a finalized TF bar into a plain Bar for engine consumption.
func (b *TFBar) Bar() Bar {
	return Bar{
		Symbol: b.Symbol,
		TS:     b.TS,
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
	}
}

// Itoa is a minimal int-to-string without importing strconv in hot path.
func Itoa(n int) string {
	if n == 0 {
		return "0"
	}
	buf := [20]byte{}
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
