package platform

import (
	"math/rand"
	"strings"

	"sapientino/internal/engine"
	"sapientino/internal/grid"
	"sapientino/internal/motion"
)

const (
	DriverRandom = "random"
	DriverScript = "script"
)

// Driver picks the next action for one agent. The Lab calls Next once per
// agent per step in agent index order, so a seeded driver replays the same
// action stream for the same configuration.
type Driver interface {
	Next(agent int, obs engine.Observation) motion.Action
}

// RandomDriver samples uniformly from one motion model's action set. It
// exists to exercise the engine in soak and benchmark runs, not as a policy.
type RandomDriver struct {
	rng     *rand.Rand
	actions []motion.Action
}

func NewRandomDriver(seed int64, m motion.Model) *RandomDriver {
	return &RandomDriver{
		rng:     rand.New(rand.NewSource(seed)),
		actions: m.Actions(),
	}
}

func (d *RandomDriver) Next(int, engine.Observation) motion.Action {
	return d.actions[d.rng.Intn(len(d.actions))]
}

// ScriptDriver replays fixed per-agent action sequences, padding with Nop
// once a sequence runs out. Agents beyond the scripted ones idle.
type ScriptDriver struct {
	scripts [][]motion.Action
	cursor  []int
}

func NewScriptDriver(scripts [][]motion.Action) *ScriptDriver {
	copied := make([][]motion.Action, len(scripts))
	for i, script := range scripts {
		copied[i] = append([]motion.Action(nil), script...)
	}
	return &ScriptDriver{scripts: copied, cursor: make([]int, len(copied))}
}

func (d *ScriptDriver) Next(agent int, _ engine.Observation) motion.Action {
	if agent < 0 || agent >= len(d.scripts) {
		return motion.Nop
	}
	at := d.cursor[agent]
	if at >= len(d.scripts[agent]) {
		return motion.Nop
	}
	d.cursor[agent]++
	return d.scripts[agent][at]
}

// Rewind restarts every sequence. The Lab rewinds between episodes so each
// episode replays the same script.
func (d *ScriptDriver) Rewind() {
	for i := range d.cursor {
		d.cursor[i] = 0
	}
}

// ParseScripts turns per-agent comma-separated action names into sequences.
// A blank entry leaves that agent idle for the whole episode.
func ParseScripts(lines []string) ([][]motion.Action, error) {
	scripts := make([][]motion.Action, len(lines))
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		script := make([]motion.Action, 0, len(parts))
		for _, part := range parts {
			action, err := motion.ParseAction(strings.TrimSpace(part))
			if err != nil {
				return nil, grid.NewConfigurationError("script", "agent %d: %v", i, err)
			}
			script = append(script, action)
		}
		scripts[i] = script
	}
	return scripts, nil
}

func driverFromConfig(cfg RunConfig, m motion.Model) (Driver, error) {
	switch cfg.Driver {
	case "", DriverRandom:
		return NewRandomDriver(cfg.Seed, m), nil
	case DriverScript:
		scripts, err := ParseScripts(cfg.Script)
		if err != nil {
			return nil, err
		}
		return NewScriptDriver(scripts), nil
	default:
		return nil, grid.NewConfigurationError("driver", "unknown driver: %q", cfg.Driver)
	}
}
