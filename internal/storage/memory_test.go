package storage

import (
	"context"
	"testing"

	"sapientino/internal/model"
)

func TestMemoryStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := model.RunRecord{
		VersionedRecord: CurrentVersion(),
		RunID:           "run-1",
		Scenario:        "default",
		Model:           "grid",
		Agents:          1,
		Episodes:        3,
		StepsPerEpisode: 50,
		Seed:            7,
		Driver:          "random",
		MeanReturn:      -0.42,
		CreatedAtUTC:    "2024-05-01T10:00:00Z",
	}
	if err := store.SaveRun(ctx, input); err != nil {
		t.Fatalf("save run: %v", err)
	}

	output, ok, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted run")
	}
	if output != input {
		t.Fatalf("run round trip: got=%+v want=%+v", output, input)
	}

	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing run: got=(%v,%v) want=(false,nil)", ok, err)
	}
}

func TestMemoryStoreListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	stamps := map[string]string{
		"run-a": "2024-05-01T10:00:00Z",
		"run-b": "2024-05-03T10:00:00Z",
		"run-c": "2024-05-02T10:00:00Z",
	}
	for id, created := range stamps {
		run := model.RunRecord{VersionedRecord: CurrentVersion(), RunID: id, CreatedAtUTC: created}
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	want := []string{"run-b", "run-c", "run-a"}
	if len(runs) != len(want) {
		t.Fatalf("run count: got=%d want=%d", len(runs), len(want))
	}
	for i, id := range want {
		if runs[i].RunID != id {
			t.Fatalf("run order at %d: got=%s want=%s", i, runs[i].RunID, id)
		}
	}
}

func TestMemoryStoreEpisodeBatchesAreCopied(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := []model.EpisodeRecord{
		{VersionedRecord: CurrentVersion(), RunID: "run-1", Episode: 1, Return: -1.5, Steps: 50},
		{VersionedRecord: CurrentVersion(), RunID: "run-1", Episode: 0, Return: -0.5, Steps: 50},
	}
	if err := store.SaveEpisodes(ctx, "run-1", input); err != nil {
		t.Fatalf("save episodes: %v", err)
	}
	input[0].Return = 999

	output, ok, err := store.ListEpisodes(ctx, "run-1")
	if err != nil {
		t.Fatalf("list episodes: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted episodes")
	}
	if len(output) != 2 || output[0].Episode != 0 || output[1].Episode != 1 {
		t.Fatalf("episode order: got=%+v", output)
	}
	if output[1].Return != -1.5 {
		t.Fatalf("stored episode mutated through caller slice: got=%v", output[1].Return)
	}

	if _, ok, err := store.ListEpisodes(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing episodes: got=(%v,%v) want=(false,nil)", ok, err)
	}
}

func TestMemoryStoreDeleteRunRemovesEpisodes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	run := model.RunRecord{VersionedRecord: CurrentVersion(), RunID: "run-1"}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	episodes := []model.EpisodeRecord{{VersionedRecord: CurrentVersion(), RunID: "run-1", Episode: 0}}
	if err := store.SaveEpisodes(ctx, "run-1", episodes); err != nil {
		t.Fatalf("save episodes: %v", err)
	}

	if err := store.DeleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("delete run: %v", err)
	}
	if _, ok, _ := store.GetRun(ctx, "run-1"); ok {
		t.Fatal("run survived delete")
	}
	if _, ok, _ := store.ListEpisodes(ctx, "run-1"); ok {
		t.Fatal("episodes survived delete")
	}
}

func TestMemoryStoreResetClearsEverything(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	for _, id := range []string{"run-1", "run-2"} {
		if err := store.SaveRun(ctx, model.RunRecord{VersionedRecord: CurrentVersion(), RunID: id}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("runs after reset: got=%d want=0", len(runs))
	}
}

func TestMemoryStoreInitIsReset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.SaveRun(ctx, model.RunRecord{VersionedRecord: CurrentVersion(), RunID: "run-1"}); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, ok, _ := store.GetRun(ctx, "run-1"); ok {
		t.Fatal("run survived init")
	}
}
