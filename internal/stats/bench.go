package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const benchSummaryFile = "bench_summary.json"

// BenchSummary aggregates a seed sweep of runs over one configuration.
type BenchSummary struct {
	Scenario       string  `json:"scenario"`
	Model          string  `json:"model"`
	Agents         int     `json:"agents"`
	Runs           int     `json:"runs"`
	Episodes       int     `json:"episodes"`
	TotalSteps     int     `json:"total_steps"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	StepsPerSecond float64 `json:"steps_per_second"`
	ReturnMean     float64 `json:"return_mean"`
	ReturnStd      float64 `json:"return_std"`
	ReturnMax      float64 `json:"return_max"`
	ReturnMin      float64 `json:"return_min"`
	CreatedAtUTC   string  `json:"created_at_utc"`
}

func WriteBenchSummary(baseDir string, summary BenchSummary) error {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(baseDir, benchSummaryFile), summary)
}

func ReadBenchSummary(baseDir string) (BenchSummary, bool, error) {
	path := filepath.Join(baseDir, benchSummaryFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return BenchSummary{}, false, nil
		}
		return BenchSummary{}, false, err
	}

	var summary BenchSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return BenchSummary{}, false, err
	}
	return summary, true, nil
}
