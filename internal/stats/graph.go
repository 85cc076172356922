package stats

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// ReturnGraph aggregates per-episode returns across the runs of one scenario.
type ReturnGraph struct {
	Scenario     string    `json:"scenario"`
	Runs         int       `json:"runs"`
	EpisodeIndex []int     `json:"episode_index"`
	AvgReturn    []float64 `json:"avg_return"`
	ReturnStd    []float64 `json:"return_std"`
	MaxReturn    []float64 `json:"max_return"`
	MinReturn    []float64 `json:"min_return"`
}

func BuildReturnGraphs(baseDir string, runIDs []string) ([]ReturnGraph, error) {
	if len(runIDs) == 0 {
		return []ReturnGraph{}, nil
	}
	runsByScenario := make(map[string][][]float64)
	for _, runID := range runIDs {
		cfg, ok, err := ReadRunConfig(baseDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("run config not found for run id: %s", runID)
		}
		series, ok, err := ReadEpisodeSeries(baseDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("episode series not found for run id: %s", runID)
		}
		scenario := strings.TrimSpace(cfg.Scenario)
		if scenario == "" {
			scenario = "unknown"
		}
		runsByScenario[scenario] = append(runsByScenario[scenario], series)
	}

	scenarios := make([]string, 0, len(runsByScenario))
	for scenario := range runsByScenario {
		scenarios = append(scenarios, scenario)
	}
	sort.Strings(scenarios)

	graphs := make([]ReturnGraph, 0, len(scenarios))
	for _, scenario := range scenarios {
		graphs = append(graphs, buildGraphForScenario(scenario, runsByScenario[scenario]))
	}
	return graphs, nil
}

func WriteReturnGraphs(outputDir string, graphs []ReturnGraph) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(graphs))
	for _, graph := range graphs {
		name := "graph_" + sanitizeGraphToken(graph.Scenario) + "_returns"
		path := filepath.Join(outputDir, name)
		if err := writeReturnGraphFile(path, graph); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

func buildGraphForScenario(scenario string, runs [][]float64) ReturnGraph {
	graph := ReturnGraph{
		Scenario: scenario,
		Runs:     len(runs),
	}
	maxEpisodes := 0
	for _, series := range runs {
		if len(series) > maxEpisodes {
			maxEpisodes = len(series)
		}
	}
	graph.EpisodeIndex = make([]int, 0, maxEpisodes)
	for episode := 0; episode < maxEpisodes; episode++ {
		graph.EpisodeIndex = append(graph.EpisodeIndex, episode)

		returnVals := make([]float64, 0, len(runs))
		for _, series := range runs {
			if episode < len(series) {
				returnVals = append(returnVals, series[episode])
			}
		}

		avgReturn, returnStd := avgStd(returnVals)
		graph.AvgReturn = append(graph.AvgReturn, avgReturn)
		graph.ReturnStd = append(graph.ReturnStd, returnStd)
		graph.MaxReturn = append(graph.MaxReturn, maxOrZero(returnVals))
		graph.MinReturn = append(graph.MinReturn, minOrZero(returnVals))
	}
	return graph
}

func writeReturnGraphFile(path string, graph ReturnGraph) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "#Avg Return Vs Episode, Scenario:%s\n", graph.Scenario); err != nil {
		return err
	}
	if err := writeSeriesWithStd(file, graph.EpisodeIndex, graph.AvgReturn, graph.ReturnStd); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(file, "\n\n#Max Return Vs Episode, Scenario:%s\n", graph.Scenario); err != nil {
		return err
	}
	if err := writeSeries(file, graph.EpisodeIndex, graph.MaxReturn); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(file, "\n\n#Min Return Vs Episode, Scenario:%s\n", graph.Scenario); err != nil {
		return err
	}
	return writeSeries(file, graph.EpisodeIndex, graph.MinReturn)
}

func writeSeriesWithStd(file *os.File, index []int, values, std []float64) error {
	length := minInt(len(index), minInt(len(values), len(std)))
	for i := 0; i < length; i++ {
		if _, err := fmt.Fprintf(file, "%d %g %g\n", index[i], values[i], std[i]); err != nil {
			return err
		}
	}
	return nil
}

func writeSeries(file *os.File, index []int, values []float64) error {
	length := minInt(len(index), len(values))
	for i := 0; i < length; i++ {
		if _, err := fmt.Fprintf(file, "%d %g\n", index[i], values[i]); err != nil {
			return err
		}
	}
	return nil
}

func sanitizeGraphToken(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	token := strings.Trim(b.String(), "_")
	if token == "" {
		return "unknown"
	}
	return token
}

func avgStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, value := range values {
		sum += value
	}
	avg := sum / float64(len(values))
	sumSq := 0.0
	for _, value := range values {
		diff := value - avg
		sumSq += diff * diff
	}
	return avg, math.Sqrt(sumSq / float64(len(values)))
}

func maxOrZero(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	max := values[0]
	for _, value := range values[1:] {
		if value > max {
			max = value
		}
	}
	return max
}

func minOrZero(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	min := values[0]
	for _, value := range values[1:] {
		if value < min {
			min = value
		}
	}
	return min
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
