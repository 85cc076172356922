// Package scenario holds the built-in named maps and their default agent
// placements. A scenario is a template: looking one up costs nothing, and
// Grid/EngineConfig build fresh instances so concurrent runs never share
// mutable state.
package scenario

import (
	"sapientino/internal/engine"
	"sapientino/internal/grid"
	"sapientino/internal/motion"
)

// Start is a default initial placement for one agent.
type Start struct {
	X float64
	Y float64
}

// Scenario couples a map with the agent placements that make sense on it.
// Starts are ordered; a run with n agents takes the first n.
type Scenario struct {
	Name        string
	Description string
	Map         string
	Starts      []Start
	Model       motion.Kind
}

// DefaultName is the scenario used when a caller does not pick one.
const DefaultName = "default"

var scenarios = []Scenario{
	{
		Name:        "default",
		Description: "walled room, two cells of each classic colour",
		Map: "#######\n" +
			"#rgbyp#\n" +
			"#     #\n" +
			"#pybgr#\n" +
			"#######",
		Starts: []Start{{3, 2}, {1, 2}, {5, 2}, {2, 2}, {4, 2}},
	},
	{
		Name:        "open5x5",
		Description: "open blank square, no walls and no colours",
		Map: "     \n" +
			"     \n" +
			"     \n" +
			"     \n" +
			"     ",
		Starts: []Start{{1, 1}, {3, 3}, {1, 3}, {3, 1}},
	},
	{
		Name:        "corridor",
		Description: "single corridor with a painted cell at each end",
		Map: "#########\n" +
			"#r     g#\n" +
			"#########",
		Starts: []Start{{4, 1}, {2, 1}, {6, 1}},
	},
	{
		Name:        "pairs",
		Description: "large walled room, two cells of each of the nine colours",
		Map: "#############\n" +
			"#r g b y p o#\n" +
			"#           #\n" +
			"#B G P P G B#\n" +
			"#           #\n" +
			"#o p y b g r#\n" +
			"#############",
		Starts: []Start{{6, 4}, {6, 2}, {2, 4}, {10, 2}, {2, 2}, {10, 4}},
	},
}

// Names lists the built-in scenarios in presentation order.
func Names() []string {
	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	return names
}

// Lookup finds a built-in scenario by name.
func Lookup(name string) (Scenario, bool) {
	for _, s := range scenarios {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}

// Grid parses the scenario map into a fresh colour grid.
func (s Scenario) Grid() (*grid.ColorGrid, error) {
	return grid.Parse(s.Map)
}

// EngineConfig builds an engine configuration with the given motion model
// for the first agents placements and the classic reward scheme. Callers
// adjust rewards or separation on the result before constructing the engine.
func (s Scenario) EngineConfig(model motion.Kind, agents int) (engine.Config, error) {
	if agents < 1 {
		return engine.Config{}, grid.NewConfigurationError("agents", "need at least one agent, got=%d", agents)
	}
	if agents > len(s.Starts) {
		return engine.Config{}, grid.NewConfigurationError("agents",
			"scenario %q defines %d starts, got=%d agents", s.Name, len(s.Starts), agents)
	}
	g, err := s.Grid()
	if err != nil {
		return engine.Config{}, err
	}
	cfg := engine.Config{
		Grid:   g,
		Reward: engine.DefaultRewardConfig(),
	}
	for _, st := range s.Starts[:agents] {
		cfg.Agents = append(cfg.Agents, engine.AgentConfig{Model: model, X: st.X, Y: st.Y})
	}
	return cfg, nil
}
