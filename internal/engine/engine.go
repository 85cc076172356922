// Package engine steps a multi-agent simulation over a coloured grid.
//
// Each step runs a fixed pipeline: every agent's motion model proposes a
// next state for its action, the resolver accepts or reverts the proposals
// against the grid boundary and the other agents, beeps mark the cells the
// beeping agents stand on, the accepted states are committed, and rewards
// and observations are derived from what happened. The engine never ends an
// episode on its own; Done is always false and termination policy belongs
// to the caller.
package engine

import (
	"fmt"
	"math"
	"strings"

	"sapientino/internal/grid"
	"sapientino/internal/motion"
)

// DefaultSeparation is the collision radius used when a continuous agent is
// involved and the configuration does not set one.
const DefaultSeparation = 0.5

// Config assembles an engine. Grid is cloned at construction, so the caller
// keeps an untouched copy. A zero Separation means DefaultSeparation and a
// zero Continuous means the classic continuous parameters; agents can
// override the latter individually through their own Continuous block.
type Config struct {
	Grid       *grid.ColorGrid
	Agents     []AgentConfig
	Reward     RewardConfig
	Separation float64
	Continuous motion.ContinuousModel
}

// Engine holds the mutable simulation state between steps.
type Engine struct {
	grid       *grid.ColorGrid
	agents     []*agentState
	reward     RewardConfig
	separation float64
	stepCount  int
}

// StepResult bundles everything one step produces, in agent index order.
type StepResult struct {
	Observations []Observation
	Rewards      []float64
	Done         bool
	Info         Info
}

// Info carries per-step diagnostics alongside observations and rewards.
type Info struct {
	Step   int
	Events []StepEvent
}

// New validates the configuration and builds an engine positioned at its
// initial state. Every validation failure is a ConfigurationError naming
// the offending field.
func New(cfg Config) (*Engine, error) {
	if cfg.Grid == nil {
		return nil, grid.NewConfigurationError("grid", "must not be nil")
	}
	if len(cfg.Agents) == 0 {
		return nil, grid.NewConfigurationError("agents", "need at least one agent")
	}
	sep := cfg.Separation
	if sep == 0 {
		sep = DefaultSeparation
	}
	if sep < 0 {
		return nil, grid.NewConfigurationError("separation", "must be positive, got=%v", cfg.Separation)
	}
	defaults := cfg.Continuous
	if defaults == (motion.ContinuousModel{}) {
		defaults = motion.DefaultContinuousModel()
	}

	e := &Engine{
		grid:       cfg.Grid.Clone(),
		reward:     cfg.Reward,
		separation: sep,
	}
	for i, ac := range cfg.Agents {
		a, err := newAgent(i, ac, defaults, e.grid)
		if err != nil {
			return nil, err
		}
		e.agents = append(e.agents, a)
	}
	for i := 0; i < len(e.agents); i++ {
		for j := i + 1; j < len(e.agents); j++ {
			if e.coincide(e.agents[i], e.agents[j], e.agents[i].initial, e.agents[j].initial) {
				return nil, grid.NewConfigurationError(
					fmt.Sprintf("agents[%d].position", j),
					"coincides with agent %d", i)
			}
		}
	}
	e.Reset()
	return e, nil
}

func newAgent(index int, ac AgentConfig, defaults motion.ContinuousModel, g *grid.ColorGrid) (*agentState, error) {
	field := func(name string) string {
		return fmt.Sprintf("agents[%d].%s", index, name)
	}

	params := defaults
	if ac.Continuous != nil {
		params = *ac.Continuous
	}
	if ac.Model == motion.ContinuousKind {
		if params.Accel <= 0 {
			return nil, grid.NewConfigurationError(field("accel"), "must be positive, got=%v", params.Accel)
		}
		if params.AngleStep <= 0 {
			return nil, grid.NewConfigurationError(field("angle_step"), "must be positive, got=%v", params.AngleStep)
		}
		if params.MinVelocity >= params.MaxVelocity {
			return nil, grid.NewConfigurationError(field("velocity"),
				"min must be below max, got=[%v,%v]", params.MinVelocity, params.MaxVelocity)
		}
	}

	model, err := motion.ForKind(ac.Model, params)
	if err != nil {
		return nil, grid.NewConfigurationError(field("model"), "%v", err)
	}
	if !g.IsInside(ac.X, ac.Y) {
		return nil, grid.NewConfigurationError(field("position"),
			"outside grid: got=(%v,%v) want x in [0,%d) y in [0,%d)",
			ac.X, ac.Y, g.Width(), g.Height())
	}

	st := motion.State{
		X:     ac.X,
		Y:     ac.Y,
		Theta: ((ac.Theta % 4) + 4) % 4,
		Angle: normalizeAngle(ac.Angle),
	}
	cx, cy := cellOf(g, st)
	if c, err := g.ColorAt(cx, cy); err == nil && c == grid.Wall {
		return nil, grid.NewConfigurationError(field("position"), "cell (%d,%d) is a wall", cx, cy)
	}

	return &agentState{index: index, kind: ac.Model, model: model, initial: st}, nil
}

func normalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Step advances the simulation by one tick. It needs exactly one action per
// agent, in agent index order. A malformed batch or an action outside an
// agent's model fails the whole step with an InvalidActionError and leaves
// the state untouched.
func (e *Engine) Step(actions []motion.Action) (StepResult, error) {
	if len(actions) != len(e.agents) {
		return StepResult{}, &InvalidActionError{
			Reason: fmt.Sprintf("got=%d actions want=%d", len(actions), len(e.agents)),
		}
	}

	proposals := make([]motion.State, len(e.agents))
	for i, a := range e.agents {
		next, err := a.model.Propose(a.current, actions[i])
		if err != nil {
			return StepResult{}, fmt.Errorf("agent %d: %w", i, err)
		}
		proposals[i] = next
	}

	accepted, events := e.resolve(proposals)

	for i, action := range actions {
		if action != motion.Beep {
			continue
		}
		events[i].Beeped = true
		cx, cy := cellOf(e.grid, accepted[i])
		first, err := e.grid.MarkVisited(cx, cy)
		if err != nil {
			return StepResult{}, fmt.Errorf("agent %d: %w", i, err)
		}
		if !first {
			if c, cerr := e.grid.ColorAt(cx, cy); cerr == nil && c.Painted() {
				events[i].DuplicateBeep = true
			}
		}
	}

	for i, a := range e.agents {
		a.current = accepted[i]
		a.lastBeep = events[i].Beeped
		a.lastColor = colorUnder(e.grid, a.current)
		if events[i].HitBoundary {
			a.boundaryHits++
		}
		if events[i].Blocked {
			a.blocked++
		}
		if events[i].DuplicateBeep {
			a.duplicateBeeps++
		}
	}
	e.stepCount++

	return StepResult{
		Observations: e.observations(),
		Rewards:      e.reward.Score(events),
		Done:         false,
		Info:         Info{Step: e.stepCount, Events: events},
	}, nil
}

// Reset restores every agent to its initial state, clears the visited
// bitmap, and returns the initial observations.
func (e *Engine) Reset() []Observation {
	e.grid.ResetVisited()
	for _, a := range e.agents {
		a.reset(e.grid)
	}
	e.stepCount = 0
	return e.observations()
}

// StepCount reports the number of completed steps since the last reset.
func (e *Engine) StepCount() int { return e.stepCount }

// Agents returns a view of every agent in index order.
func (e *Engine) Agents() []AgentView {
	views := make([]AgentView, len(e.agents))
	for i, a := range e.agents {
		views[i] = a.view()
	}
	return views
}

// Snapshot captures the simulation state with a cloned grid, safe to keep
// while the engine continues stepping.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{Step: e.stepCount, Grid: e.grid.Clone(), Agents: e.Agents()}
}

// Snapshot is a point-in-time copy of the whole simulation.
type Snapshot struct {
	Step   int
	Grid   *grid.ColorGrid
	Agents []AgentView
}

// Render draws the grid with each agent's index overlaid on its cell.
func (s Snapshot) Render() string {
	rows := strings.Split(s.Grid.Render(), "\n")
	cells := make([][]rune, len(rows))
	for i, row := range rows {
		cells[i] = []rune(row)
	}
	for _, a := range s.Agents {
		cx, cy := cellOf(s.Grid, a.State)
		row := s.Grid.Height() - 1 - cy
		if row < 0 || row >= len(cells) || cx < 0 || cx >= len(cells[row]) {
			continue
		}
		cells[row][cx] = rune('0' + a.Index%10)
	}
	out := make([]string, len(cells))
	for i, row := range cells {
		out[i] = string(row)
	}
	return strings.Join(out, "\n")
}
