package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"sapientino/internal/model"
)

const runIndexFile = "run_index.json"

// RunConfig is the fully resolved configuration of one run, written next to
// its results so a run directory is self-describing and replayable.
type RunConfig struct {
	RunID               string   `json:"run_id"`
	Scenario            string   `json:"scenario"`
	MapText             string   `json:"map_text,omitempty"`
	Model               string   `json:"model"`
	Agents              int      `json:"agents"`
	Episodes            int      `json:"episodes"`
	StepsPerEpisode     int      `json:"steps_per_episode"`
	Seed                int64    `json:"seed"`
	Driver              string   `json:"driver"`
	Script              []string `json:"script,omitempty"`
	RewardPerStep       float64  `json:"reward_per_step"`
	RewardOutsideGrid   float64  `json:"reward_outside_grid"`
	RewardDuplicateBeep float64  `json:"reward_duplicate_beep"`
	SharedReward        bool     `json:"shared_reward"`
	Separation          float64  `json:"separation"`
	StoreKind           string   `json:"store_kind,omitempty"`
}

// RunArtifacts is everything one run leaves on disk.
type RunArtifacts struct {
	Config   RunConfig             `json:"config"`
	Episodes []model.EpisodeRecord `json:"episodes"`
	Summary  model.RunRecord       `json:"summary"`
}

type RunIndexEntry struct {
	RunID        string  `json:"run_id"`
	Scenario     string  `json:"scenario"`
	Model        string  `json:"model"`
	Agents       int     `json:"agents"`
	Episodes     int     `json:"episodes"`
	Seed         int64   `json:"seed"`
	Driver       string  `json:"driver"`
	MeanReturn   float64 `json:"mean_return"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

// WriteRunArtifacts lays down <baseDir>/<run-id>/ with the resolved config,
// the per-episode returns as JSON and CSV, and the run summary.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "episode_returns.json"), artifacts.Episodes); err != nil {
		return "", err
	}
	if err := writeEpisodeCSV(runDir, artifacts.Episodes); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "summary.json"), artifacts.Summary); err != nil {
		return "", err
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	path := filepath.Join(baseDir, runID, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

func ReadRunSummary(baseDir, runID string) (model.RunRecord, bool, error) {
	path := filepath.Join(baseDir, runID, "summary.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.RunRecord{}, false, nil
		}
		return model.RunRecord{}, false, err
	}

	var summary model.RunRecord
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.RunRecord{}, false, err
	}
	return summary, true, nil
}

func ReadEpisodeReturns(baseDir, runID string) ([]model.EpisodeRecord, bool, error) {
	path := filepath.Join(baseDir, runID, "episode_returns.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var episodes []model.EpisodeRecord
	if err := json.Unmarshal(data, &episodes); err != nil {
		return nil, false, err
	}
	return episodes, true, nil
}

// ReadEpisodeSeries reads just the return column of the CSV artifact.
func ReadEpisodeSeries(baseDir, runID string) ([]float64, bool, error) {
	path := filepath.Join(baseDir, runID, "episode_returns.csv")
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("episode series header must have at least 2 columns")
	}

	series := make([]float64, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 2 {
			return nil, false, fmt.Errorf("episode series row must have at least 2 columns")
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, err
		}
		series = append(series, value)
	}
	return series, true, nil
}

func writeEpisodeCSV(runDir string, episodes []model.EpisodeRecord) error {
	path := filepath.Join(runDir, "episode_returns.csv")
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"episode", "return", "steps", "boundary_hits", "duplicate_beeps", "blocked", "cells_visited"}); err != nil {
		return err
	}
	for _, ep := range episodes {
		if err := writer.Write([]string{
			strconv.Itoa(ep.Episode),
			strconv.FormatFloat(ep.Return, 'f', -1, 64),
			strconv.Itoa(ep.Steps),
			strconv.Itoa(ep.BoundaryHits),
			strconv.Itoa(ep.DuplicateBeeps),
			strconv.Itoa(ep.Blocked),
			strconv.Itoa(ep.CellsVisited),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// IndexEntryFor derives the index row from a run summary.
func IndexEntryFor(summary model.RunRecord) RunIndexEntry {
	return RunIndexEntry{
		RunID:        summary.RunID,
		Scenario:     summary.Scenario,
		Model:        summary.Model,
		Agents:       summary.Agents,
		Episodes:     summary.Episodes,
		Seed:         summary.Seed,
		Driver:       summary.Driver,
		MeanReturn:   summary.MeanReturn,
		CreatedAtUTC: summary.CreatedAtUTC,
	}
}

// ValidRunID reports whether id is usable as a run directory name.
func ValidRunID(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}
