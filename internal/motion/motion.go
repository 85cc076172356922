// Package motion holds the per-agent kinematics: the shared state record,
// the action vocabulary, and the three motion models that turn an action
// into a proposed next state. Proposals are pure and know nothing about the
// map; bounds and conflicts are the collision resolver's job, so a proposal
// may well lie outside the grid.
package motion

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// State is the kinematic record of one agent. It is a superset across the
// three models: grid agents use X/Y only, rotary agents add Theta, and
// continuous agents use X/Y/Velocity/Angle. Unused fields stay zero.
type State struct {
	X, Y     float64
	Theta    int     // quarter-turns: 0 east, 1 north, 2 west, 3 south
	Velocity float64 // signed speed, cells per step
	Angle    float64 // heading in degrees, [0, 360)
}

// Cell returns the discrete cell the state occupies: coordinates rounded to
// the nearest integer. Capping into the grid is the caller's concern since
// State has no grid knowledge.
func (s State) Cell() (int, int) {
	return int(math.Round(s.X)), int(math.Round(s.Y))
}

// Kind names one of the three closed motion model variants.
type Kind int

const (
	GridKind Kind = iota
	RotaryKind
	ContinuousKind
)

func (k Kind) String() string {
	switch k {
	case GridKind:
		return "grid"
	case RotaryKind:
		return "rotary"
	case ContinuousKind:
		return "continuous"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind resolves a model name from config or CLI input.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "grid":
		return GridKind, nil
	case "rotary", "differential":
		return RotaryKind, nil
	case "continuous":
		return ContinuousKind, nil
	default:
		return GridKind, fmt.Errorf("unknown motion model: %q", s)
	}
}

// InvalidActionError reports an action outside a model's enumerated set or a
// malformed action batch. It marks a caller contract violation, not a
// recoverable runtime condition.
type InvalidActionError struct {
	Model  Kind
	Action Action
	Reason string
}

func (e *InvalidActionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid action: %s", e.Reason)
	}
	return fmt.Sprintf("invalid action for %s model: %s", e.Model, e.Action)
}

// Model maps (state, action) to a proposed next state. Implementations are
// pure and deterministic, never consult the map, and never clamp to bounds.
type Model interface {
	Kind() Kind
	Actions() []Action
	Propose(s State, a Action) (State, error)
}

// zeroSnapTolerance flushes float dust from trig and velocity arithmetic so
// axis-aligned continuous motion stays exactly on the axis.
const zeroSnapTolerance = 1e-8

func snapZero(v float64) float64 {
	if math.Abs(v) <= zeroSnapTolerance {
		return 0
	}
	return v
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// GridModel steps one whole cell along a cardinal axis. No orientation.
type GridModel struct{}

func (GridModel) Kind() Kind { return GridKind }

func (GridModel) Actions() []Action {
	return []Action{Up, Down, Left, Right, Beep, Nop}
}

func (m GridModel) Propose(s State, a Action) (State, error) {
	switch a {
	case Up:
		s.Y++
	case Down:
		s.Y--
	case Left:
		s.X--
	case Right:
		s.X++
	case Beep, Nop:
	default:
		return s, &InvalidActionError{Model: m.Kind(), Action: a}
	}
	return s, nil
}

// RotaryModel keeps a discrete facing and steps along it. Turns rotate in
// place by a quarter-turn; forward moves along the facing, backward against
// it without turning.
type RotaryModel struct{}

func (RotaryModel) Kind() Kind { return RotaryKind }

func (RotaryModel) Actions() []Action {
	return []Action{Forward, Backward, TurnLeft, TurnRight, Beep, Nop}
}

func (m RotaryModel) Propose(s State, a Action) (State, error) {
	dx, dy := headingDelta(s.Theta)
	switch a {
	case TurnLeft:
		s.Theta = (s.Theta + 1) % 4
	case TurnRight:
		s.Theta = (s.Theta + 3) % 4
	case Forward:
		s.X += dx
		s.Y += dy
	case Backward:
		s.X -= dx
		s.Y -= dy
	case Beep, Nop:
	default:
		return s, &InvalidActionError{Model: m.Kind(), Action: a}
	}
	return s, nil
}

func headingDelta(theta int) (float64, float64) {
	switch ((theta % 4) + 4) % 4 {
	case 0:
		return 1, 0
	case 1:
		return 0, 1
	case 2:
		return -1, 0
	default:
		return 0, -1
	}
}

// ContinuousModel is a discrete-time point mass: position integrates one
// Euler step with the velocity and heading held BEFORE the action applies,
// then the action adjusts velocity or heading for the next step.
type ContinuousModel struct {
	Accel       float64 // velocity change per accelerate/decelerate
	AngleStep   float64 // heading change in degrees per turn
	MinVelocity float64
	MaxVelocity float64
}

// DefaultContinuousModel carries the classic parameter set.
func DefaultContinuousModel() ContinuousModel {
	return ContinuousModel{
		Accel:       0.02,
		AngleStep:   20.0,
		MinVelocity: -0.20,
		MaxVelocity: 0.20,
	}
}

func (ContinuousModel) Kind() Kind { return ContinuousKind }

func (ContinuousModel) Actions() []Action {
	return []Action{Accelerate, Decelerate, TurnLeft, TurnRight, Beep, Nop}
}

func (m ContinuousModel) Propose(s State, a Action) (State, error) {
	switch a {
	case Accelerate, Decelerate, TurnLeft, TurnRight:
	case Beep, Nop:
		return s, nil
	default:
		return s, &InvalidActionError{Model: m.Kind(), Action: a}
	}

	rad := s.Angle * math.Pi / 180
	s.X += s.Velocity * snapZero(math.Cos(rad))
	s.Y += s.Velocity * snapZero(math.Sin(rad))

	switch a {
	case Accelerate:
		s.Velocity = snapZero(clamp(s.Velocity+m.Accel, m.MinVelocity, m.MaxVelocity))
	case Decelerate:
		s.Velocity = snapZero(clamp(s.Velocity-m.Accel, m.MinVelocity, m.MaxVelocity))
	case TurnLeft:
		s.Angle = wrapAngle(s.Angle + m.AngleStep)
	case TurnRight:
		s.Angle = wrapAngle(s.Angle - m.AngleStep)
	}
	return s, nil
}

func wrapAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// ForKind returns the model for a kind, with the continuous variant carrying
// the given parameters.
func ForKind(k Kind, continuous ContinuousModel) (Model, error) {
	switch k {
	case GridKind:
		return GridModel{}, nil
	case RotaryKind:
		return RotaryModel{}, nil
	case ContinuousKind:
		return continuous, nil
	default:
		return nil, fmt.Errorf("unknown motion model kind: %d", int(k))
	}
}
