package laguerre

import (
	"fmt"
	"time"

	"trendlab-enginev1/internal/model"
	"trendlab-enginev1/internal/smooth"
)

// FilterSnapshot holds the serialized state of one Filter instance for
// checkpoint persistence. Restore is only valid against an identical
// configuration; mismatches cold-start instead (the restorer's job).
type FilterSnapshot struct {
	Length   int    `json:"length"`
	Order    int    `json:"order"`
	Price    string `json:"price"`
	Adaptive bool   `json:"adaptive"`

	Bar       int       `json:"bar"`
	Cur       []float64 `json:"cur"`
	Prev      []float64 `json:"prev"`
	LastTS    time.Time `json:"last_ts"`
	Value     float64   `json:"value"`
	PrevValue float64   `json:"prev_value"`
	Trend     int8      `json:"trend"`
	GammaUsed float64   `json:"gamma_used"`

	Diffs     []float64        `json:"diffs,omitempty"`
	DiffIdx   int              `json:"diff_idx,omitempty"`
	DiffCount int              `json:"diff_count,omitempty"`
	Smoother  *smooth.Snapshot `json:"smoother,omitempty"`
}

// Snapshot captures the full filter state.
func (f *Filter) Snapshot() FilterSnapshot {
	snap := FilterSnapshot{
		Length:    f.cfg.Length,
		Order:     f.cfg.Order,
		Price:     f.cfg.Price.String(),
		Adaptive:  f.cfg.Adaptive,
		Bar:       f.bar,
		Cur:       append([]float64(nil), f.state.cur...),
		Prev:      append([]float64(nil), f.state.prev...),
		LastTS:    f.state.lastTS,
		Value:     f.value,
		PrevValue: f.prevValue,
		Trend:     int8(f.trend),
		GammaUsed: f.gammaUsed,
	}
	if f.gamma != nil {
		snap.Diffs = append([]float64(nil), f.gamma.diffs...)
		snap.DiffIdx = f.gamma.idx
		snap.DiffCount = f.gamma.count
		if sm, ok := f.gamma.smoother.(smooth.Snapshottable); ok {
			s := sm.Snapshot()
			snap.Smoother = &s
		}
	}
	return snap
}

// RestoreFromSnapshot restores filter state from a checkpoint. The
// snapshot must describe the same Length/Order/Price/Adaptive shape.
func (f *Filter) RestoreFromSnapshot(snap FilterSnapshot) error {
	if snap.Length != f.cfg.Length || snap.Order != f.cfg.Order ||
		snap.Price != f.cfg.Price.String() || snap.Adaptive != f.cfg.Adaptive {
		return fmt.Errorf("laguerre: snapshot shape %d/%d/%s does not match config %d/%d/%s",
			snap.Length, snap.Order, snap.Price, f.cfg.Length, f.cfg.Order, f.cfg.Price)
	}

	f.bar = snap.Bar
	copy(f.state.cur, snap.Cur)
	copy(f.state.prev, snap.Prev)
	f.state.lastTS = snap.LastTS
	f.lastTS = snap.LastTS
	f.value = snap.Value
	f.prevValue = snap.PrevValue
	f.trend = model.Trend(snap.Trend)
	f.gammaUsed = snap.GammaUsed

	if f.gamma != nil && snap.Smoother != nil {
		copy(f.gamma.diffs, snap.Diffs)
		f.gamma.idx = snap.DiffIdx
		f.gamma.count = snap.DiffCount
		sm, err := smooth.FromSnapshot(*snap.Smoother)
		if err != nil {
			return fmt.Errorf("laguerre: restore smoother: %w", err)
		}
		f.gamma.smoother = sm
	}
	return nil
}
