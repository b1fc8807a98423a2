package volstop

// PositionStateMachine combines the per-timeframe trend verdicts into a
// signed position state and emits edge-triggered entry signals.
//
// The state persists unless all timeframes agree: +1 when every verdict
// is up, -1 when every verdict is down, otherwise unchanged (0 before the
// first agreement). A signal fires only on the bar where the state
// transitions into the matching side — never again while the condition
// keeps holding.
type PositionStateMachine struct {
	state     int
	prevState int
}

// Step feeds one bar's verdicts and returns the entry signals.
func (p *PositionStateMachine) Step(uptrends [3]bool) (goLong, goShort bool) {
	longCond := uptrends[0] && uptrends[1] && uptrends[2]
	shortCond := !uptrends[0] && !uptrends[1] && !uptrends[2]

	p.prevState = p.state
	if longCond {
		p.state = 1
	} else if shortCond {
		p.state = -1
	}

	goLong = longCond && p.state == 1 && p.prevState != 1
	goShort = shortCond && p.state == -1 && p.prevState != -1
	return goLong, goShort
}

// State returns the current position state: +1 long, -1 short, 0 initial.
func (p *PositionStateMachine) State() int { return p.state }

// PrevState returns the state before the most recent Step.
func (p *PositionStateMachine) PrevState() int { return p.prevState }
