// Package csvload parses historical OHLCV bars from CSV exports in the
// "Date,Time,Open,High,Low,Close,Volume" layout used by most charting
// platforms. Every row passes Bar.Validate before being accepted, so
// downstream engines never see malformed input.
package csvload

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"trendlab-enginev1/internal/model"
)

// Options controls CSV parsing.
type Options struct {
	Symbol     string // symbol assigned to every parsed bar
	DateFormat string // Go layout for the Date column; default "2006.01.02"
	TimeFormat string // Go layout for the Time column; default "15:04"
	HasHeader  bool   // skip the first row
}

// Result summarizes a load: accepted bars plus per-reason reject counts.
type Result struct {
	Bars     []model.Bar
	Rejected int
	Rows     int
}

// LoadFile opens path and parses it with Load.
func LoadFile(path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvload: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f, opts)
}

// Load parses CSV rows from r. Rows that fail validation are counted
// and skipped, never silently coerced. Rows must be in chronological
// order; out-of-order rows are rejected.
func Load(r io.Reader, opts Options) (*Result, error) {
	if opts.Symbol == "" {
		return nil, fmt.Errorf("csvload: symbol is required")
	}
	if opts.DateFormat == "" {
		opts.DateFormat = "2006.01.02"
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = "15:04"
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // validated per row below
	cr.TrimLeadingSpace = true

	res := &Result{}
	var lastTS time.Time

	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvload: row %d: %w", res.Rows+1, err)
		}
		res.Rows++

		if first && opts.HasHeader {
			first = false
			continue
		}
		first = false

		bar, err := parseRow(rec, opts)
		if err != nil {
			log.Printf("[csvload] row %d rejected: %v", res.Rows, err)
			res.Rejected++
			continue
		}
		if err := bar.Validate(); err != nil {
			log.Printf("[csvload] row %d rejected: %v", res.Rows, err)
			res.Rejected++
			continue
		}
		if !lastTS.IsZero() && bar.TS.Before(lastTS) {
			log.Printf("[csvload] row %d rejected: out of order (%v before %v)", res.Rows, bar.TS, lastTS)
			res.Rejected++
			continue
		}
		lastTS = bar.TS
		res.Bars = append(res.Bars, bar)
	}

	log.Printf("[csvload] %s: %d rows, %d bars accepted, %d rejected",
		opts.Symbol, res.Rows, len(res.Bars), res.Rejected)
	return res, nil
}

// parseRow converts one record into a Bar.
// Layout: Date,Time,Open,High,Low,Close,Volume (volume optional).
func parseRow(rec []string, opts Options) (model.Bar, error) {
	if len(rec) < 6 {
		return model.Bar{}, fmt.Errorf("expected at least 6 fields, got %d", len(rec))
	}

	ts, err := time.ParseInLocation(
		opts.DateFormat+" "+opts.TimeFormat,
		strings.TrimSpace(rec[0])+" "+strings.TrimSpace(rec[1]),
		time.UTC,
	)
	if err != nil {
		return model.Bar{}, fmt.Errorf("parse timestamp: %w", err)
	}

	vals := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[2+i]), 64)
		if err != nil {
			return model.Bar{}, fmt.Errorf("parse field %d: %w", 2+i, err)
		}
		vals[i] = v
	}

	var vol float64
	if len(rec) >= 7 && strings.TrimSpace(rec[6]) != "" {
		vol, err = strconv.ParseFloat(strings.TrimSpace(rec[6]), 64)
		if err != nil {
			return model.Bar{}, fmt.Errorf("parse volume: %w", err)
		}
	}

	return model.Bar{
		Symbol: opts.Symbol,
		TS:     ts,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vol,
	}, nil
}
