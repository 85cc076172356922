package engine

// RewardConfig defines the per-step reward decomposition. Every agent earns
// PerStep each step, plus OutsideGrid when its move was reverted at the grid
// boundary, plus DuplicateBeep when it beeped on an already-visited coloured
// cell. With Shared set, all agents receive the sum of the individual
// rewards instead of their own.
type RewardConfig struct {
	PerStep       float64
	OutsideGrid   float64
	DuplicateBeep float64
	Shared        bool
}

// DefaultRewardConfig returns the classic reward scheme: a small time
// penalty plus unit penalties for boundary hits and duplicate beeps.
func DefaultRewardConfig() RewardConfig {
	return RewardConfig{
		PerStep:       -0.01,
		OutsideGrid:   -1.0,
		DuplicateBeep: -1.0,
	}
}

// Score maps one step's events to per-agent rewards.
func (c RewardConfig) Score(events []StepEvent) []float64 {
	rewards := make([]float64, len(events))
	for i, ev := range events {
		r := c.PerStep
		if ev.HitBoundary {
			r += c.OutsideGrid
		}
		if ev.DuplicateBeep {
			r += c.DuplicateBeep
		}
		rewards[i] = r
	}
	if c.Shared {
		total := 0.0
		for _, r := range rewards {
			total += r
		}
		for i := range rewards {
			rewards[i] = total
		}
	}
	return rewards
}
