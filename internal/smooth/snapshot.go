package smooth

import "fmt"

// Snapshot holds the serialized state of a single smoother instance,
// used by the engines' checkpoint persistence.
type Snapshot struct {
	Kind    string    `json:"kind"` // "sma", "ema", "lwma", "median"
	Period  int       `json:"period"`
	Buf     []float64 `json:"buf,omitempty"`
	Idx     int       `json:"idx,omitempty"`
	Count   int       `json:"count"`
	Current float64   `json:"current,omitempty"`
}

// Snapshottable is implemented by smoothers that support checkpointing.
// All smoothers in this package do.
type Snapshottable interface {
	Smoother
	Snapshot() Snapshot
	RestoreFromSnapshot(snap Snapshot) error
}

// FromSnapshot rebuilds a smoother from its serialized state.
func FromSnapshot(snap Snapshot) (Smoother, error) {
	var s Snapshottable
	switch snap.Kind {
	case "sma":
		s = NewSMA(snap.Period)
	case "ema":
		s = NewEMA(snap.Period)
	case "lwma":
		s = NewLWMA(snap.Period)
	case "median":
		s = NewMedian(snap.Period)
	default:
		return nil, fmt.Errorf("smooth: unknown snapshot kind %q", snap.Kind)
	}
	if err := s.RestoreFromSnapshot(snap); err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot serializes the SMA state.
func (s *SMA) Snapshot() Snapshot {
	buf := make([]float64, len(s.buf))
	copy(buf, s.buf)
	return Snapshot{Kind: "sma", Period: s.period, Buf: buf, Idx: s.idx, Count: s.count, Current: s.sum}
}

// RestoreFromSnapshot restores SMA state.
func (s *SMA) RestoreFromSnapshot(snap Snapshot) error {
	s.period = snap.Period
	s.buf = make([]float64, snap.Period)
	copy(s.buf, snap.Buf)
	s.idx = snap.Idx
	s.count = snap.Count
	s.sum = snap.Current
	return nil
}

// Snapshot serializes the EMA state.
func (e *EMA) Snapshot() Snapshot {
	return Snapshot{Kind: "ema", Period: e.period, Count: e.count, Current: e.current}
}

// RestoreFromSnapshot restores EMA state.
func (e *EMA) RestoreFromSnapshot(snap Snapshot) error {
	e.period = snap.Period
	e.alpha = 2.0 / float64(snap.Period+1)
	e.count = snap.Count
	e.current = snap.Current
	return nil
}

// Snapshot serializes the LWMA state.
func (l *LWMA) Snapshot() Snapshot {
	buf := make([]float64, len(l.buf))
	copy(buf, l.buf)
	return Snapshot{Kind: "lwma", Period: l.period, Buf: buf, Idx: l.idx, Count: l.count}
}

// RestoreFromSnapshot restores LWMA state.
func (l *LWMA) RestoreFromSnapshot(snap Snapshot) error {
	l.period = snap.Period
	l.buf = make([]float64, snap.Period)
	copy(l.buf, snap.Buf)
	l.idx = snap.Idx
	l.count = snap.Count
	return nil
}

// Snapshot serializes the median state.
func (m *Median) Snapshot() Snapshot {
	buf := make([]float64, len(m.buf))
	copy(buf, m.buf)
	return Snapshot{Kind: "median", Period: m.period, Buf: buf, Idx: m.idx, Count: m.count}
}

// RestoreFromSnapshot restores median state.
func (m *Median) RestoreFromSnapshot(snap Snapshot) error {
	m.period = snap.Period
	m.buf = make([]float64, snap.Period)
	copy(m.buf, snap.Buf)
	m.sorted = make([]float64, 0, snap.Period)
	m.idx = snap.Idx
	m.count = snap.Count
	return nil
}
