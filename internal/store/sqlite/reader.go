package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"trendlab-enginev1/internal/model"
	"trendlab-enginev1/internal/signal"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to SQLite for replay, sweeps, and
// snapshot restore.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// ReadBars reads base bars for a symbol, ordered by timestamp ascending
// for correct replay order.
func (r *Reader) ReadBars(symbol string, afterTS int64) ([]model.Bar, error) {
	rows, err := r.db.Query(`
		SELECT symbol, ts, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND ts > ?
		ORDER BY ts ASC
	`, symbol, afterTS)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		var tsUnix int64
		if err := rows.Scan(&b.Symbol, &tsUnix, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan bars: %w", err)
		}
		b.TS = time.Unix(tsUnix, 0).UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ReadTFBars reads TF bars from the bars_tf table for a given symbol and TF.
// Results are ordered by timestamp ascending for correct replay order.
func (r *Reader) ReadTFBars(symbol string, tf int, afterTS int64) ([]model.TFBar, error) {
	rows, err := r.db.Query(`
		SELECT symbol, tf, ts, open, high, low, close, volume, count
		FROM bars_tf
		WHERE symbol = ? AND tf = ? AND ts > ?
		ORDER BY ts ASC
	`, symbol, tf, afterTS)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars_tf: %w", err)
	}
	defer rows.Close()

	var bars []model.TFBar
	for rows.Next() {
		var b model.TFBar
		var tsUnix int64
		if err := rows.Scan(&b.Symbol, &b.TF, &tsUnix, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Count); err != nil {
			return nil, fmt.Errorf("sqlite scan bars_tf: %w", err)
		}
		b.TS = time.Unix(tsUnix, 0).UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ReadAllTFBars reads all TF bars from SQLite for backfill, ordered by timestamp.
func (r *Reader) ReadAllTFBars(tf int, afterTS int64) ([]model.TFBar, error) {
	rows, err := r.db.Query(`
		SELECT symbol, tf, ts, open, high, low, close, volume, count
		FROM bars_tf
		WHERE tf = ? AND ts > ?
		ORDER BY ts ASC
	`, tf, afterTS)
	if err != nil {
		return nil, fmt.Errorf("sqlite query all bars_tf: %w", err)
	}
	defer rows.Close()

	var bars []model.TFBar
	for rows.Next() {
		var b model.TFBar
		var tsUnix int64
		if err := rows.Scan(&b.Symbol, &b.TF, &tsUnix, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Count); err != nil {
			return nil, fmt.Errorf("sqlite scan bars_tf: %w", err)
		}
		b.TS = time.Unix(tsUnix, 0).UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ReadLatestSnapshot loads the most recent signal engine snapshot from SQLite.
func (r *Reader) ReadLatestSnapshot() (*signal.EngineSnapshot, error) {
	var data string
	err := r.db.QueryRow(`
		SELECT data FROM engine_snapshots
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // no snapshot
		}
		return nil, fmt.Errorf("sqlite read snapshot: %w", err)
	}

	var snap signal.EngineSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
