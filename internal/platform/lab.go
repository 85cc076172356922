// Package platform owns the run lifecycle around the simulation core: it
// builds engines from run configurations, drives them for a bounded number
// of episodes and steps, and persists summaries, episode records, and disk
// artifacts. Episode termination lives here; the engine itself never ends
// an episode.
package platform

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"sapientino/internal/engine"
	"sapientino/internal/grid"
	"sapientino/internal/model"
	"sapientino/internal/motion"
	"sapientino/internal/scenario"
	"sapientino/internal/stats"
	"sapientino/internal/storage"
)

const (
	DefaultStorePath     = "sapientino.db"
	DefaultBenchmarksDir = "benchmarks"
)

// Config wires a Lab. Zero fields fall back to the memory store, the default
// database path, and the default benchmarks directory.
type Config struct {
	StoreKind     string
	StorePath     string
	BenchmarksDir string
}

// RunConfig describes one run. Scenario names a built-in map unless MapText
// supplies one directly; Script holds per-agent comma-separated action names
// for the script driver. Reward and Separation are used exactly as given,
// so callers wanting the classic rewards pass engine.DefaultRewardConfig().
type RunConfig struct {
	RunID           string
	Scenario        string
	MapText         string
	Model           string
	Agents          int
	Episodes        int
	StepsPerEpisode int
	Seed            int64
	Driver          string
	Script          []string
	Reward          engine.RewardConfig
	Separation      float64
}

// RunResult reports where one completed run left its records.
type RunResult struct {
	RunID        string
	ArtifactsDir string
	Summary      model.RunRecord
	Episodes     []model.EpisodeRecord
}

// Lab holds the store and artifact wiring shared by runs.
type Lab struct {
	store         storage.Store
	storeKind     string
	benchmarksDir string

	mu          sync.Mutex
	initialized bool

	// run_index.json is read-modify-write, so concurrent suite runs
	// serialize their appends here.
	indexMu sync.Mutex
}

func New(cfg Config) (*Lab, error) {
	storeKind := cfg.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	storePath := cfg.StorePath
	if storePath == "" {
		storePath = DefaultStorePath
	}
	benchmarksDir := cfg.BenchmarksDir
	if benchmarksDir == "" {
		benchmarksDir = DefaultBenchmarksDir
	}

	store, err := storage.NewStore(storeKind, storePath)
	if err != nil {
		return nil, err
	}
	return &Lab{
		store:         store,
		storeKind:     storeKind,
		benchmarksDir: benchmarksDir,
	}, nil
}

func (l *Lab) Close() error {
	return storage.CloseIfSupported(l.store)
}

func (l *Lab) BenchmarksDir() string {
	return l.benchmarksDir
}

func (l *Lab) ensure(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.initialized {
		return nil
	}
	if err := l.store.Init(ctx); err != nil {
		return err
	}
	l.initialized = true
	return nil
}

// Run executes one configured run: E episodes of at most S steps each, the
// driver choosing every action. It saves the run and episode records to the
// store, writes the artifact directory, and appends the run index entry.
func (l *Lab) Run(ctx context.Context, cfg RunConfig) (RunResult, error) {
	cfg, err := normalizeRunConfig(cfg)
	if err != nil {
		return RunResult{}, err
	}

	engineConfig, err := BuildEngineConfig(cfg)
	if err != nil {
		return RunResult{}, err
	}
	eng, err := engine.New(engineConfig)
	if err != nil {
		return RunResult{}, err
	}

	kind, err := motion.ParseKind(cfg.Model)
	if err != nil {
		return RunResult{}, grid.NewConfigurationError("model", "%v", err)
	}
	motionModel, err := motion.ForKind(kind, motion.DefaultContinuousModel())
	if err != nil {
		return RunResult{}, err
	}
	driver, err := driverFromConfig(cfg, motionModel)
	if err != nil {
		return RunResult{}, err
	}

	if err := l.ensure(ctx); err != nil {
		return RunResult{}, err
	}

	version := storage.CurrentVersion()
	episodes := make([]model.EpisodeRecord, 0, cfg.Episodes)
	var totalReturn, bestReturn float64
	var totalSteps, boundaryHits, duplicateBeeps, blocked, cellsVisited int

	for ep := 0; ep < cfg.Episodes; ep++ {
		observations := eng.Reset()
		if rewinder, ok := driver.(interface{ Rewind() }); ok {
			rewinder.Rewind()
		}

		var episodeReturn float64
		steps := 0
		for step := 0; step < cfg.StepsPerEpisode; step++ {
			if err := ctx.Err(); err != nil {
				return RunResult{}, err
			}
			actions := make([]motion.Action, len(observations))
			for i := range observations {
				actions[i] = driver.Next(i, observations[i])
			}
			result, err := eng.Step(actions)
			if err != nil {
				return RunResult{}, fmt.Errorf("episode %d step %d: %w", ep, step, err)
			}
			episodeReturn += teamReturn(cfg.Reward, result.Rewards)
			observations = result.Observations
			steps++
		}

		var epBoundary, epDuplicate, epBlocked int
		for _, view := range eng.Agents() {
			epBoundary += view.BoundaryHits
			epDuplicate += view.DuplicateBeeps
			epBlocked += view.Blocked
		}
		epVisited := eng.Snapshot().Grid.VisitedCount()

		episodes = append(episodes, model.EpisodeRecord{
			VersionedRecord: version,
			RunID:           cfg.RunID,
			Episode:         ep,
			Return:          episodeReturn,
			Steps:           steps,
			BoundaryHits:    epBoundary,
			DuplicateBeeps:  epDuplicate,
			Blocked:         epBlocked,
			CellsVisited:    epVisited,
		})

		totalReturn += episodeReturn
		if ep == 0 || episodeReturn > bestReturn {
			bestReturn = episodeReturn
		}
		totalSteps += steps
		boundaryHits += epBoundary
		duplicateBeeps += epDuplicate
		blocked += epBlocked
		cellsVisited += epVisited
	}

	summary := model.RunRecord{
		VersionedRecord: version,
		RunID:           cfg.RunID,
		Scenario:        cfg.Scenario,
		Model:           cfg.Model,
		Agents:          cfg.Agents,
		Episodes:        cfg.Episodes,
		StepsPerEpisode: cfg.StepsPerEpisode,
		Seed:            cfg.Seed,
		Driver:          cfg.Driver,
		MeanReturn:      totalReturn / float64(cfg.Episodes),
		BestReturn:      bestReturn,
		TotalSteps:      totalSteps,
		BoundaryHits:    boundaryHits,
		DuplicateBeeps:  duplicateBeeps,
		Blocked:         blocked,
		CellsVisited:    cellsVisited,
		CreatedAtUTC:    time.Now().UTC().Format(time.RFC3339Nano),
	}

	if err := l.store.SaveRun(ctx, summary); err != nil {
		return RunResult{}, err
	}
	if err := l.store.SaveEpisodes(ctx, cfg.RunID, episodes); err != nil {
		return RunResult{}, err
	}

	runDir, err := stats.WriteRunArtifacts(l.benchmarksDir, stats.RunArtifacts{
		Config:   artifactConfig(cfg, l.storeKind),
		Episodes: episodes,
		Summary:  summary,
	})
	if err != nil {
		return RunResult{}, err
	}
	l.indexMu.Lock()
	err = stats.AppendRunIndex(l.benchmarksDir, stats.IndexEntryFor(summary))
	l.indexMu.Unlock()
	if err != nil {
		return RunResult{}, err
	}

	return RunResult{
		RunID:        cfg.RunID,
		ArtifactsDir: filepath.Clean(runDir),
		Summary:      summary,
		Episodes:     episodes,
	}, nil
}

// RunSuite executes several runs concurrently under a supervisor, retrying
// failed runs per the given policy. Every config needs a distinct RunID.
// Results come back in config order; a nil error means every run completed.
func (l *Lab) RunSuite(ctx context.Context, configs []RunConfig, policy SupervisorPolicy) ([]RunResult, error) {
	if len(configs) == 0 {
		return nil, grid.NewConfigurationError("configs", "need at least one run")
	}
	seen := make(map[string]struct{}, len(configs))
	for i, cfg := range configs {
		if cfg.RunID == "" {
			return nil, grid.NewConfigurationError(fmt.Sprintf("configs[%d].run_id", i), "suite runs need explicit run ids")
		}
		if _, dup := seen[cfg.RunID]; dup {
			return nil, grid.NewConfigurationError(fmt.Sprintf("configs[%d].run_id", i), "duplicate run id: %s", cfg.RunID)
		}
		seen[cfg.RunID] = struct{}{}
	}
	if policy.MaxRestarts == 0 {
		// A batch has to terminate even when a run keeps failing.
		policy.MaxRestarts = 2
	}

	supervisor := NewSupervisor(policy)
	var mu sync.Mutex
	results := make(map[string]RunResult, len(configs))

	cancelWatch := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			supervisor.StopAll()
		case <-cancelWatch:
		}
	}()
	defer close(cancelWatch)

	for _, cfg := range configs {
		cfg := cfg
		spec := SupervisorChildSpec{Name: cfg.RunID, Restart: SupervisorRestartTransient}
		err := supervisor.StartSpec(spec, func(taskCtx context.Context) error {
			result, err := l.Run(taskCtx, cfg)
			if err != nil {
				return err
			}
			mu.Lock()
			results[cfg.RunID] = result
			mu.Unlock()
			return nil
		})
		if err != nil {
			supervisor.StopAll()
			return nil, err
		}
	}
	supervisor.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]RunResult, 0, len(configs))
	mu.Lock()
	for _, cfg := range configs {
		if result, ok := results[cfg.RunID]; ok {
			out = append(out, result)
		}
	}
	mu.Unlock()

	failed := 0
	var firstFailure SupervisorChildStatus
	for _, child := range supervisor.Children() {
		if child.PermanentFailed {
			if failed == 0 {
				firstFailure = child
			}
			failed++
		}
	}
	if failed > 0 {
		return out, fmt.Errorf("suite: %d of %d runs failed, first %s: %s",
			failed, len(configs), firstFailure.Name, firstFailure.LastError)
	}
	return out, nil
}

func (l *Lab) Runs(ctx context.Context) ([]model.RunRecord, error) {
	if err := l.ensure(ctx); err != nil {
		return nil, err
	}
	return l.store.ListRuns(ctx)
}

func (l *Lab) Episodes(ctx context.Context, runID string) ([]model.EpisodeRecord, bool, error) {
	if err := l.ensure(ctx); err != nil {
		return nil, false, err
	}
	return l.store.ListEpisodes(ctx, runID)
}

func (l *Lab) GetRun(ctx context.Context, runID string) (model.RunRecord, bool, error) {
	if err := l.ensure(ctx); err != nil {
		return model.RunRecord{}, false, err
	}
	return l.store.GetRun(ctx, runID)
}

func (l *Lab) DeleteRun(ctx context.Context, runID string) error {
	if err := l.ensure(ctx); err != nil {
		return err
	}
	return l.store.DeleteRun(ctx, runID)
}

func (l *Lab) ResetStore(ctx context.Context) error {
	if err := l.ensure(ctx); err != nil {
		return err
	}
	return l.store.Reset(ctx)
}

// normalizeRunConfig validates the run shape and resolves every defaulted
// name, so the records and artifacts written later describe the run as it
// actually executed.
func normalizeRunConfig(cfg RunConfig) (RunConfig, error) {
	kind, err := motion.ParseKind(cfg.Model)
	if err != nil {
		return cfg, grid.NewConfigurationError("model", "%v", err)
	}
	cfg.Model = kind.String()

	if cfg.Scenario == "" {
		if cfg.MapText != "" {
			cfg.Scenario = "custom"
		} else {
			cfg.Scenario = scenario.DefaultName
		}
	}
	if cfg.Agents <= 0 {
		cfg.Agents = 1
	}
	if cfg.Episodes < 1 {
		return cfg, grid.NewConfigurationError("episodes", "must be positive, got=%d", cfg.Episodes)
	}
	if cfg.StepsPerEpisode < 1 {
		return cfg, grid.NewConfigurationError("steps_per_episode", "must be positive, got=%d", cfg.StepsPerEpisode)
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverRandom
	}
	if cfg.Separation == 0 {
		cfg.Separation = engine.DefaultSeparation
	}
	if cfg.RunID == "" {
		cfg.RunID = fmt.Sprintf("%s-%s-%d", cfg.Scenario, cfg.Model, cfg.Seed)
	}
	if !stats.ValidRunID(cfg.RunID) {
		return cfg, grid.NewConfigurationError("run_id", "not usable as a directory name: %q", cfg.RunID)
	}
	return cfg, nil
}

// BuildEngineConfig resolves a run configuration into an engine one, either
// from a built-in scenario or from explicit map text. With map text the
// agents start on the first usable cells, scanning x then y from the origin;
// blank cells are taken before painted ones and walls never qualify.
func BuildEngineConfig(cfg RunConfig) (engine.Config, error) {
	kind, err := motion.ParseKind(cfg.Model)
	if err != nil {
		return engine.Config{}, grid.NewConfigurationError("model", "%v", err)
	}
	agents := cfg.Agents
	if agents <= 0 {
		agents = 1
	}

	if cfg.MapText != "" {
		g, err := grid.Parse(cfg.MapText)
		if err != nil {
			return engine.Config{}, err
		}
		agentConfigs, err := agentsForGrid(g, kind, agents)
		if err != nil {
			return engine.Config{}, err
		}
		return engine.Config{
			Grid:       g,
			Agents:     agentConfigs,
			Reward:     cfg.Reward,
			Separation: cfg.Separation,
		}, nil
	}

	name := cfg.Scenario
	if name == "" {
		name = scenario.DefaultName
	}
	sc, ok := scenario.Lookup(name)
	if !ok {
		return engine.Config{}, grid.NewConfigurationError("scenario", "unknown scenario: %q", name)
	}
	engineConfig, err := sc.EngineConfig(kind, agents)
	if err != nil {
		return engine.Config{}, err
	}
	engineConfig.Reward = cfg.Reward
	engineConfig.Separation = cfg.Separation
	return engineConfig, nil
}

func agentsForGrid(g *grid.ColorGrid, kind motion.Kind, count int) ([]engine.AgentConfig, error) {
	if count < 1 {
		return nil, grid.NewConfigurationError("agents", "need at least one agent, got=%d", count)
	}
	var blanks, painted []engine.AgentConfig
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			c, err := g.ColorAt(x, y)
			if err != nil {
				return nil, err
			}
			ac := engine.AgentConfig{Model: kind, X: float64(x), Y: float64(y)}
			switch {
			case c == grid.Blank:
				blanks = append(blanks, ac)
			case c.Painted():
				painted = append(painted, ac)
			}
		}
	}
	usable := append(blanks, painted...)
	if len(usable) < count {
		return nil, grid.NewConfigurationError("agents",
			"map has %d usable cells, got=%d agents", len(usable), count)
	}
	return usable[:count], nil
}

// teamReturn reduces one step's per-agent rewards to a single scalar. Shared
// rewards already broadcast the team sum to every agent, so taking the first
// avoids counting it once per agent.
func teamReturn(reward engine.RewardConfig, rewards []float64) float64 {
	if len(rewards) == 0 {
		return 0
	}
	if reward.Shared {
		return rewards[0]
	}
	total := 0.0
	for _, r := range rewards {
		total += r
	}
	return total
}

func artifactConfig(cfg RunConfig, storeKind string) stats.RunConfig {
	out := stats.RunConfig{
		RunID:               cfg.RunID,
		Scenario:            cfg.Scenario,
		Model:               cfg.Model,
		Agents:              cfg.Agents,
		Episodes:            cfg.Episodes,
		StepsPerEpisode:     cfg.StepsPerEpisode,
		Seed:                cfg.Seed,
		Driver:              cfg.Driver,
		RewardPerStep:       cfg.Reward.PerStep,
		RewardOutsideGrid:   cfg.Reward.OutsideGrid,
		RewardDuplicateBeep: cfg.Reward.DuplicateBeep,
		SharedReward:        cfg.Reward.Shared,
		Separation:          cfg.Separation,
		StoreKind:           storeKind,
	}
	if cfg.MapText != "" {
		out.MapText = cfg.MapText
	}
	if cfg.Driver == DriverScript {
		out.Script = append([]string(nil), cfg.Script...)
	}
	return out
}
