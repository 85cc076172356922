package engine

import (
	"sapientino/internal/grid"
	"sapientino/internal/motion"
)

// AgentConfig describes one agent at construction time. X and Y give the
// initial position in grid coordinates. Theta is the initial facing for
// rotary agents and Angle the initial heading in degrees for continuous
// agents; both are ignored by models that do not use them. Continuous, when
// non-nil, overrides the engine-wide continuous parameters for this agent.
type AgentConfig struct {
	Model motion.Kind
	X     float64
	Y     float64
	Theta int
	Angle float64

	Continuous *motion.ContinuousModel
}

// AgentView is a read-only snapshot of one agent between steps.
type AgentView struct {
	Index          int
	Model          motion.Kind
	State          motion.State
	LastBeep       bool
	LastColor      grid.Color
	BoundaryHits   int
	DuplicateBeeps int
	Blocked        int
}

type agentState struct {
	index   int
	kind    motion.Kind
	model   motion.Model
	initial motion.State
	current motion.State

	lastBeep  bool
	lastColor grid.Color

	boundaryHits   int
	duplicateBeeps int
	blocked        int
}

func (a *agentState) reset(g *grid.ColorGrid) {
	a.current = a.initial
	a.lastBeep = false
	a.lastColor = colorUnder(g, a.current)
	a.boundaryHits = 0
	a.duplicateBeeps = 0
	a.blocked = 0
}

func (a *agentState) view() AgentView {
	return AgentView{
		Index:          a.index,
		Model:          a.kind,
		State:          a.current,
		LastBeep:       a.lastBeep,
		LastColor:      a.lastColor,
		BoundaryHits:   a.boundaryHits,
		DuplicateBeeps: a.duplicateBeeps,
		Blocked:        a.blocked,
	}
}

// colorUnder reports the colour of the discrete cell beneath a state that is
// already known to lie inside the grid.
func colorUnder(g *grid.ColorGrid, s motion.State) grid.Color {
	cx, cy := cellOf(g, s)
	c, err := g.ColorAt(cx, cy)
	if err != nil {
		return grid.Blank
	}
	return c
}

// cellOf maps a continuous position inside the grid to its discrete cell.
// Rounding can land exactly on the outer edge, so the result is capped to
// the last cell on each axis.
func cellOf(g *grid.ColorGrid, s motion.State) (int, int) {
	cx, cy := s.Cell()
	if cx < 0 {
		cx = 0
	}
	if cy < 0 {
		cy = 0
	}
	if cx > g.Width()-1 {
		cx = g.Width() - 1
	}
	if cy > g.Height()-1 {
		cy = g.Height() - 1
	}
	return cx, cy
}
