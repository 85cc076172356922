package stats

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"sapientino/internal/model"
)

func sampleArtifacts(runID, createdAt string) RunArtifacts {
	version := model.VersionedRecord{SchemaVersion: 1, CodecVersion: 1}
	return RunArtifacts{
		Config: RunConfig{
			RunID:               runID,
			Scenario:            "default",
			Model:               "grid",
			Agents:              2,
			Episodes:            2,
			StepsPerEpisode:     25,
			Seed:                7,
			Driver:              "random",
			RewardPerStep:       -0.01,
			RewardOutsideGrid:   -1,
			RewardDuplicateBeep: -1,
			Separation:          0.5,
		},
		Episodes: []model.EpisodeRecord{
			{VersionedRecord: version, RunID: runID, Episode: 0, Return: -0.5, Steps: 25, BoundaryHits: 1, CellsVisited: 2},
			{VersionedRecord: version, RunID: runID, Episode: 1, Return: -0.25, Steps: 25, DuplicateBeeps: 1, CellsVisited: 3},
		},
		Summary: model.RunRecord{
			VersionedRecord: version,
			RunID:           runID,
			Scenario:        "default",
			Model:           "grid",
			Agents:          2,
			Episodes:        2,
			StepsPerEpisode: 25,
			Seed:            7,
			Driver:          "random",
			MeanReturn:      -0.375,
			BestReturn:      -0.25,
			TotalSteps:      50,
			BoundaryHits:    1,
			DuplicateBeeps:  1,
			CellsVisited:    5,
			CreatedAtUTC:    createdAt,
		},
	}
}

func TestWriteRunArtifactsLaysOutRunDirectory(t *testing.T) {
	baseDir := t.TempDir()
	artifacts := sampleArtifacts("run-artifacts-1", "2026-01-02T03:04:05Z")

	runDir, err := WriteRunArtifacts(baseDir, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	if want := filepath.Join(baseDir, "run-artifacts-1"); runDir != want {
		t.Fatalf("run dir: got=%s want=%s", runDir, want)
	}

	for _, name := range []string{"config.json", "episode_returns.json", "episode_returns.csv", "summary.json"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Fatalf("artifact %s: %v", name, err)
		}
	}

	cfg, ok, err := ReadRunConfig(baseDir, "run-artifacts-1")
	if err != nil || !ok {
		t.Fatalf("read config: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(cfg, artifacts.Config) {
		t.Fatalf("config round trip: got=%+v want=%+v", cfg, artifacts.Config)
	}

	summary, ok, err := ReadRunSummary(baseDir, "run-artifacts-1")
	if err != nil || !ok {
		t.Fatalf("read summary: ok=%v err=%v", ok, err)
	}
	if summary != artifacts.Summary {
		t.Fatalf("summary round trip: got=%+v want=%+v", summary, artifacts.Summary)
	}

	episodes, ok, err := ReadEpisodeReturns(baseDir, "run-artifacts-1")
	if err != nil || !ok {
		t.Fatalf("read episodes: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(episodes, artifacts.Episodes) {
		t.Fatalf("episodes round trip: got=%+v want=%+v", episodes, artifacts.Episodes)
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	artifacts := sampleArtifacts("", "2026-01-02T03:04:05Z")
	if _, err := WriteRunArtifacts(t.TempDir(), artifacts); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestEpisodeSeriesMatchesReturnColumn(t *testing.T) {
	baseDir := t.TempDir()
	artifacts := sampleArtifacts("run-series-1", "2026-01-02T03:04:05Z")
	if _, err := WriteRunArtifacts(baseDir, artifacts); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	series, ok, err := ReadEpisodeSeries(baseDir, "run-series-1")
	if err != nil || !ok {
		t.Fatalf("read series: ok=%v err=%v", ok, err)
	}
	want := []float64{-0.5, -0.25}
	if !reflect.DeepEqual(series, want) {
		t.Fatalf("series: got=%v want=%v", series, want)
	}
}

func TestRunIndexAppendListAndUpsert(t *testing.T) {
	baseDir := t.TempDir()

	older := RunIndexEntry{RunID: "run-a", Scenario: "default", Model: "grid", MeanReturn: -0.5, CreatedAtUTC: "2026-01-01T00:00:00Z"}
	newer := RunIndexEntry{RunID: "run-b", Scenario: "open5x5", Model: "rotary", MeanReturn: -0.25, CreatedAtUTC: "2026-01-02T00:00:00Z"}

	if err := AppendRunIndex(baseDir, older); err != nil {
		t.Fatalf("append older: %v", err)
	}
	if err := AppendRunIndex(baseDir, newer); err != nil {
		t.Fatalf("append newer: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("index length: got=%d want=2", len(entries))
	}
	if entries[0].RunID != "run-b" || entries[1].RunID != "run-a" {
		t.Fatalf("index order: got=%s,%s want=run-b,run-a", entries[0].RunID, entries[1].RunID)
	}

	updated := older
	updated.MeanReturn = -0.1
	if err := AppendRunIndex(baseDir, updated); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list after upsert: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("index length after upsert: got=%d want=2", len(entries))
	}
	if entries[1].MeanReturn != -0.1 {
		t.Fatalf("upserted mean return: got=%v want=-0.1", entries[1].MeanReturn)
	}
}

func TestRunIndexEqualTimestampPrefersLaterAppend(t *testing.T) {
	baseDir := t.TempDir()
	stamp := "2026-01-03T00:00:00Z"

	first := RunIndexEntry{RunID: "run-first", CreatedAtUTC: stamp}
	second := RunIndexEntry{RunID: "run-second", CreatedAtUTC: stamp}

	if err := AppendRunIndex(baseDir, first); err != nil {
		t.Fatalf("append first: %v", err)
	}
	if err := AppendRunIndex(baseDir, second); err != nil {
		t.Fatalf("append second: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if entries[0].RunID != "run-second" || entries[1].RunID != "run-first" {
		t.Fatalf("tie order: got=%s,%s want=run-second,run-first", entries[0].RunID, entries[1].RunID)
	}
}

func TestReadMissingRunReturnsNotFound(t *testing.T) {
	baseDir := t.TempDir()

	if _, ok, err := ReadRunConfig(baseDir, "ghost"); ok || err != nil {
		t.Fatalf("config: ok=%v err=%v", ok, err)
	}
	if _, ok, err := ReadRunSummary(baseDir, "ghost"); ok || err != nil {
		t.Fatalf("summary: ok=%v err=%v", ok, err)
	}
	if _, ok, err := ReadEpisodeReturns(baseDir, "ghost"); ok || err != nil {
		t.Fatalf("episodes: ok=%v err=%v", ok, err)
	}
	if _, ok, err := ReadEpisodeSeries(baseDir, "ghost"); ok || err != nil {
		t.Fatalf("series: ok=%v err=%v", ok, err)
	}
}

func TestIndexEntryForCopiesSummaryFields(t *testing.T) {
	summary := sampleArtifacts("run-entry-1", "2026-01-04T00:00:00Z").Summary
	entry := IndexEntryFor(summary)

	if entry.RunID != summary.RunID || entry.Scenario != summary.Scenario || entry.Model != summary.Model {
		t.Fatalf("identity fields: got=%+v", entry)
	}
	if entry.MeanReturn != summary.MeanReturn || entry.CreatedAtUTC != summary.CreatedAtUTC {
		t.Fatalf("metric fields: got=%+v", entry)
	}
}

func TestValidRunID(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"run-1", true},
		{"a1b2c3", true},
		{"", false},
		{"   ", false},
		{"runs/../escape", false},
		{`run\1`, false},
	}
	for _, tc := range cases {
		if got := ValidRunID(tc.id); got != tc.want {
			t.Fatalf("ValidRunID(%q): got=%v want=%v", tc.id, got, tc.want)
		}
	}
}
