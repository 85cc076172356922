package engine

import (
	"math"

	"sapientino/internal/grid"
	"sapientino/internal/motion"
)

// StepEvent records what happened to one agent during a single step.
// HitBoundary means the proposal left the grid, Blocked means it was
// reverted by a wall or by another agent. At most one of the two is set.
type StepEvent struct {
	Agent         int
	Moved         bool
	HitBoundary   bool
	Blocked       bool
	Beeped        bool
	DuplicateBeep bool
}

// resolve turns proposals into accepted states. The boundary pass reverts
// any proposal that leaves the grid or lands on a wall cell, restoring the
// full pre-step state including velocity. The conflict pass then reverts
// agents whose accepted positions would coincide: among movers contending
// for the same spot the lowest index wins, and an agent whose position is
// unchanged this step holds its spot against any mover.
func (e *Engine) resolve(proposals []motion.State) ([]motion.State, []StepEvent) {
	n := len(e.agents)
	accepted := make([]motion.State, n)
	events := make([]StepEvent, n)

	for i, a := range e.agents {
		events[i].Agent = i
		accepted[i] = proposals[i]
		if !e.grid.IsInside(proposals[i].X, proposals[i].Y) {
			accepted[i] = a.current
			events[i].HitBoundary = true
			continue
		}
		cx, cy := cellOf(e.grid, proposals[i])
		if c, err := e.grid.ColorAt(cx, cy); err == nil && c == grid.Wall {
			accepted[i] = a.current
			events[i].Blocked = true
		}
	}

	// Reverting one agent can put it back in the path of another, so the
	// conflict scan repeats until no coinciding pair has a mover left.
	for {
		again := false
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if !e.coincide(e.agents[i], e.agents[j], accepted[i], accepted[j]) {
					continue
				}
				iMoved := positionChanged(e.agents[i].current, accepted[i])
				jMoved := positionChanged(e.agents[j].current, accepted[j])
				loser := -1
				switch {
				case iMoved && jMoved:
					loser = j
				case iMoved:
					loser = i
				case jMoved:
					loser = j
				}
				if loser < 0 {
					continue
				}
				accepted[loser] = e.agents[loser].current
				events[loser].Blocked = true
				again = true
			}
		}
		if !again {
			break
		}
	}

	for i := range events {
		events[i].Moved = positionChanged(e.agents[i].current, accepted[i])
	}
	return accepted, events
}

// coincide reports whether two accepted states occupy the same spot. Two
// discrete agents coincide when they share a cell; when either agent is
// continuous the test is Euclidean distance below the separation radius.
func (e *Engine) coincide(a, b *agentState, sa, sb motion.State) bool {
	if a.kind != motion.ContinuousKind && b.kind != motion.ContinuousKind {
		ax, ay := cellOf(e.grid, sa)
		bx, by := cellOf(e.grid, sb)
		return ax == bx && ay == by
	}
	return math.Hypot(sa.X-sb.X, sa.Y-sb.Y) < e.separation
}

func positionChanged(before, after motion.State) bool {
	return before.X != after.X || before.Y != after.Y
}
