package signal

import (
	"encoding/json"
	"log"
	"time"

	"trendlab-enginev1/internal/laguerre"
)

// SymbolSnapshot holds the checkpointed filter state for one symbol.
// The stop engine is deliberately not checkpointed: its state reconverges
// within one ATR window of higher-TF bars, while the Laguerre recursion
// would otherwise need a full 2*Length+Order warm-up replay.
type SymbolSnapshot struct {
	Symbol string                  `json:"symbol"`
	Filter laguerre.FilterSnapshot `json:"filter"`
}

// EngineSnapshot holds the full checkpointed state of a signal engine.
type EngineSnapshot struct {
	Version int              `json:"version"` // schema version for forward compat
	TakenAt time.Time        `json:"taken_at"`
	BaseTF  int              `json:"base_tf"`
	Symbols []SymbolSnapshot `json:"symbols"`
}

// JSON serializes the snapshot.
func (s *EngineSnapshot) JSON() ([]byte, error) { return json.Marshal(s) }

// SnapshotEngine captures the filter state of every tracked symbol.
// Safe to call while another goroutine is feeding Process: it takes the
// engine lock, so the cells are never read mid-update.
func SnapshotEngine(e *Engine) *EngineSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := &EngineSnapshot{
		Version: 1,
		TakenAt: time.Now().UTC(),
		BaseTF:  e.cfg.BaseTF,
	}
	for symbol, se := range e.state {
		snap.Symbols = append(snap.Symbols, SymbolSnapshot{
			Symbol: symbol,
			Filter: se.resolver.Filter().Snapshot(),
		})
	}
	return snap
}

// RestoreEngine rebuilds an engine from a snapshot. It is tolerant of
// configuration changes: symbols whose snapshot shape no longer matches
// the current filter config are cold-started instead of failing.
func RestoreEngine(cfg EngineConfig, snap *EngineSnapshot) (*Engine, error) {
	e, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return e, nil // cold start
	}

	restored, cold := 0, 0
	for _, ss := range snap.Symbols {
		se, err := e.createSymbolEngines()
		if err != nil {
			return nil, err
		}
		if err := se.resolver.Filter().RestoreFromSnapshot(ss.Filter); err != nil {
			cold++
			log.Printf("[signal] %s: snapshot mismatch, cold-starting: %v", ss.Symbol, err)
		} else {
			restored++
			se.lastTS = ss.Filter.LastTS
		}
		e.state[ss.Symbol] = se
	}
	if restored+cold > 0 {
		log.Printf("[signal] restore: %d symbols restored, %d cold-started", restored, cold)
	}
	return e, nil
}
