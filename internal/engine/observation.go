package engine

import (
	"sapientino/internal/grid"
)

// Observation is what one agent perceives after a step: its continuous
// position, the discrete cell that position maps to, the orientation fields
// of its motion model, whether it beeped on the last step, and the colour of
// the cell it stands on.
type Observation struct {
	Agent     int
	X         float64
	Y         float64
	DiscreteX int
	DiscreteY int
	Theta     int
	Angle     float64
	Velocity  float64
	Beep      bool
	Color     grid.Color
}

// Features flattens the observation into a numeric vector, in a fixed order,
// for consumers that want a feature array instead of named fields.
func (o Observation) Features() []float64 {
	beep := 0.0
	if o.Beep {
		beep = 1.0
	}
	return []float64{
		o.X,
		o.Y,
		float64(o.DiscreteX),
		float64(o.DiscreteY),
		float64(o.Theta),
		o.Angle,
		o.Velocity,
		beep,
		float64(o.Color),
	}
}

func (e *Engine) observe(a *agentState) Observation {
	cx, cy := cellOf(e.grid, a.current)
	return Observation{
		Agent:     a.index,
		X:         a.current.X,
		Y:         a.current.Y,
		DiscreteX: cx,
		DiscreteY: cy,
		Theta:     a.current.Theta,
		Angle:     a.current.Angle,
		Velocity:  a.current.Velocity,
		Beep:      a.lastBeep,
		Color:     a.lastColor,
	}
}

func (e *Engine) observations() []Observation {
	obs := make([]Observation, len(e.agents))
	for i, a := range e.agents {
		obs[i] = e.observe(a)
	}
	return obs
}
