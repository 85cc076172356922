package motion

import "fmt"

// Action is one agent command. The full set spans all three motion models;
// each model accepts only its own subset and rejects the rest as an
// InvalidActionError.
type Action int

const (
	Nop Action = iota
	Beep
	Up
	Down
	Left
	Right
	Forward
	Backward
	TurnLeft
	TurnRight
	Accelerate
	Decelerate
)

var actionNames = [...]string{
	Nop:        "nop",
	Beep:       "beep",
	Up:         "up",
	Down:       "down",
	Left:       "left",
	Right:      "right",
	Forward:    "forward",
	Backward:   "backward",
	TurnLeft:   "turn-left",
	TurnRight:  "turn-right",
	Accelerate: "accelerate",
	Decelerate: "decelerate",
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

// ParseAction resolves an action name as used in script files and CLI input.
func ParseAction(s string) (Action, error) {
	for a, name := range actionNames {
		if name == s {
			return Action(a), nil
		}
	}
	return Nop, fmt.Errorf("unknown action name: %q", s)
}
