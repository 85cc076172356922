package stats

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sapientino/internal/model"
)

func TestBuildReturnGraphsAlignsRunsByScenario(t *testing.T) {
	base := t.TempDir()

	writeGraphRun := func(runID, scenario string, returns []float64) {
		t.Helper()
		episodes := make([]model.EpisodeRecord, len(returns))
		for i, ret := range returns {
			episodes[i] = model.EpisodeRecord{RunID: runID, Episode: i, Return: ret, Steps: 4}
		}
		if _, err := WriteRunArtifacts(base, RunArtifacts{
			Config: RunConfig{
				RunID:    runID,
				Scenario: scenario,
				Model:    "grid",
				Agents:   1,
				Episodes: len(returns),
			},
			Episodes: episodes,
		}); err != nil {
			t.Fatalf("write run artifacts for %s: %v", runID, err)
		}
	}

	writeGraphRun("graph-run-001", "open5x5", []float64{-1.0, -0.5, -0.25})
	writeGraphRun("graph-run-002", "open5x5", []float64{-0.5, -1.5})
	writeGraphRun("graph-run-003", "corridor", []float64{-2.0})

	graphs, err := BuildReturnGraphs(base, []string{"graph-run-001", "graph-run-002", "graph-run-003"})
	if err != nil {
		t.Fatalf("build return graphs: %v", err)
	}
	if len(graphs) != 2 {
		t.Fatalf("expected one graph per scenario, got %d", len(graphs))
	}
	if graphs[0].Scenario != "corridor" || graphs[1].Scenario != "open5x5" {
		t.Fatalf("expected scenarios sorted by name: %+v", graphs)
	}

	graph := graphs[1]
	if graph.Runs != 2 {
		t.Fatalf("unexpected run count: %+v", graph)
	}
	if len(graph.EpisodeIndex) != 3 {
		t.Fatalf("expected index to cover the longest run: %+v", graph.EpisodeIndex)
	}
	if graph.AvgReturn[0] != -0.75 || graph.ReturnStd[0] != 0.25 {
		t.Fatalf("unexpected episode 0 aggregate: %+v", graph)
	}
	if graph.AvgReturn[1] != -1.0 || graph.ReturnStd[1] != 0.5 {
		t.Fatalf("unexpected episode 1 aggregate: %+v", graph)
	}
	if graph.AvgReturn[2] != -0.25 || graph.ReturnStd[2] != 0 {
		t.Fatalf("expected episode 2 aggregate from the single longer run: %+v", graph)
	}
	if graph.MaxReturn[0] != -0.5 || graph.MinReturn[0] != -1.0 {
		t.Fatalf("unexpected episode 0 extremes: %+v", graph)
	}
}

func TestBuildReturnGraphsMissingRunFails(t *testing.T) {
	base := t.TempDir()
	_, err := BuildReturnGraphs(base, []string{"ghost-run"})
	if err == nil || !strings.Contains(err.Error(), "run config not found") {
		t.Fatalf("expected missing run config error, got %v", err)
	}
}

func TestWriteReturnGraphs(t *testing.T) {
	base := t.TempDir()
	graphs := []ReturnGraph{
		{
			Scenario:     "open5x5",
			Runs:         2,
			EpisodeIndex: []int{0, 1},
			AvgReturn:    []float64{-0.75, -1},
			ReturnStd:    []float64{0.25, 0.5},
			MaxReturn:    []float64{-0.5, -0.5},
			MinReturn:    []float64{-1, -1.5},
		},
	}

	paths, err := WriteReturnGraphs(filepath.Join(base, "benchmarks"), graphs)
	if err != nil {
		t.Fatalf("write return graphs: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected one graph output, got %d", len(paths))
	}
	if filepath.Base(paths[0]) != "graph_open5x5_returns" {
		t.Fatalf("unexpected graph file name: %s", paths[0])
	}

	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("read graph output: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "#Avg Return Vs Episode, Scenario:open5x5") {
		t.Fatalf("expected avg return section, got:\n%s", text)
	}
	if !strings.Contains(text, "#Max Return Vs Episode, Scenario:open5x5") {
		t.Fatalf("expected max return section, got:\n%s", text)
	}
	if !strings.Contains(text, "#Min Return Vs Episode, Scenario:open5x5") {
		t.Fatalf("expected min return section, got:\n%s", text)
	}
	if !strings.Contains(text, "0 -0.75 0.25\n") {
		t.Fatalf("expected avg series row with std, got:\n%s", text)
	}
	if !strings.Contains(text, "1 -1.5\n") {
		t.Fatalf("expected min series row, got:\n%s", text)
	}
}
