package sapientino

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"sapientino/internal/engine"
	"sapientino/internal/model"
	"sapientino/internal/platform"
	"sapientino/internal/scenario"
	"sapientino/internal/stats"
)

type Options struct {
	StoreKind     string
	StorePath     string
	BenchmarksDir string
}

type Client struct {
	lab *platform.Lab
}

type RunRequest struct {
	Scenario            string
	MapText             string
	Model               string
	Agents              int
	Episodes            int
	Steps               int
	Seed                int64
	Driver              string
	Script              []string
	RunID               string
	RewardPerStep       float64
	RewardOutsideGrid   float64
	RewardDuplicateBeep float64
	SharedReward        bool
	Separation          float64
}

type RunSummary struct {
	RunID           string
	ArtifactsDir    string
	Scenario        string
	Model           string
	Agents          int
	Episodes        int
	StepsPerEpisode int
	Seed            int64
	Driver          string
	MeanReturn      float64
	BestReturn      float64
	TotalSteps      int
	BoundaryHits    int
	DuplicateBeeps  int
	Blocked         int
	CellsVisited    int
	CreatedAtUTC    string
}

type ReportRequest struct {
	RunID  string
	Latest bool
}

type Report struct {
	Summary  RunSummary
	Episodes []model.EpisodeRecord
}

type EngineRequest struct {
	Scenario            string
	MapText             string
	Model               string
	Agents              int
	RewardPerStep       float64
	RewardOutsideGrid   float64
	RewardDuplicateBeep float64
	SharedReward        bool
	Separation          float64
}

func NewClient(opts Options) (*Client, error) {
	lab, err := platform.New(platform.Config{
		StoreKind:     opts.StoreKind,
		StorePath:     opts.StorePath,
		BenchmarksDir: opts.BenchmarksDir,
	})
	if err != nil {
		return nil, err
	}
	return &Client{lab: lab}, nil
}

func (c *Client) Close() error {
	return c.lab.Close()
}

func (c *Client) BenchmarksDir() string {
	return c.lab.BenchmarksDir()
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	result, err := c.lab.Run(ctx, runConfigFromRequest(fillRunDefaults(req)))
	if err != nil {
		return RunSummary{}, err
	}
	summary := summaryFromRecord(result.Summary, c.lab.BenchmarksDir())
	summary.ArtifactsDir = result.ArtifactsDir
	return summary, nil
}

func (c *Client) Runs(ctx context.Context) ([]RunSummary, error) {
	records, err := c.lab.Runs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RunSummary, 0, len(records))
	for _, record := range records {
		out = append(out, summaryFromRecord(record, c.lab.BenchmarksDir()))
	}
	return out, nil
}

func (c *Client) Report(ctx context.Context, req ReportRequest) (Report, bool, error) {
	if req.RunID != "" && req.Latest {
		return Report{}, false, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return Report{}, false, errors.New("report requires run id or latest")
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.lab.BenchmarksDir())
		if err != nil {
			return Report{}, false, err
		}
		if len(entries) == 0 {
			return Report{}, false, nil
		}
		runID = entries[0].RunID
	}

	record, ok, err := c.lab.GetRun(ctx, runID)
	if err != nil || !ok {
		return Report{}, false, err
	}
	episodes, ok, err := c.lab.Episodes(ctx, runID)
	if err != nil {
		return Report{}, false, err
	}
	if !ok {
		episodes = nil
	}
	return Report{
		Summary:  summaryFromRecord(record, c.lab.BenchmarksDir()),
		Episodes: episodes,
	}, true, nil
}

func (c *Client) RunSuite(ctx context.Context, reqs []RunRequest) ([]RunSummary, error) {
	configs := make([]platform.RunConfig, 0, len(reqs))
	for _, req := range reqs {
		configs = append(configs, runConfigFromRequest(fillRunDefaults(req)))
	}
	results, err := c.lab.RunSuite(ctx, configs, platform.SupervisorPolicy{})
	out := make([]RunSummary, 0, len(results))
	for _, result := range results {
		summary := summaryFromRecord(result.Summary, c.lab.BenchmarksDir())
		summary.ArtifactsDir = result.ArtifactsDir
		out = append(out, summary)
	}
	return out, err
}

func (c *Client) NewEngine(req EngineRequest) (*engine.Engine, error) {
	separation := req.Separation
	if separation == 0 {
		separation = engine.DefaultSeparation
	}
	cfg, err := platform.BuildEngineConfig(platform.RunConfig{
		Scenario:   req.Scenario,
		MapText:    req.MapText,
		Model:      req.Model,
		Agents:     req.Agents,
		Reward:     resolveReward(req.RewardPerStep, req.RewardOutsideGrid, req.RewardDuplicateBeep, req.SharedReward),
		Separation: separation,
	})
	if err != nil {
		return nil, err
	}
	return engine.New(cfg)
}

func fillRunDefaults(req RunRequest) RunRequest {
	if req.Scenario == "" && req.MapText == "" {
		req.Scenario = scenario.DefaultName
	}
	if req.Model == "" {
		req.Model = "grid"
	}
	if req.Agents <= 0 {
		req.Agents = 1
	}
	if req.Episodes <= 0 {
		req.Episodes = 10
	}
	if req.Steps <= 0 {
		req.Steps = 100
	}
	if req.Driver == "" {
		req.Driver = platform.DriverRandom
	}
	if req.RunID == "" {
		req.RunID = newRunID(req)
	}
	return req
}

func runConfigFromRequest(req RunRequest) platform.RunConfig {
	return platform.RunConfig{
		RunID:           req.RunID,
		Scenario:        req.Scenario,
		MapText:         req.MapText,
		Model:           req.Model,
		Agents:          req.Agents,
		Episodes:        req.Episodes,
		StepsPerEpisode: req.Steps,
		Seed:            req.Seed,
		Driver:          req.Driver,
		Script:          req.Script,
		Reward:          resolveReward(req.RewardPerStep, req.RewardOutsideGrid, req.RewardDuplicateBeep, req.SharedReward),
		Separation:      req.Separation,
	}
}

func newRunID(req RunRequest) string {
	label := req.Scenario
	if label == "" {
		label = "custom"
	}
	model := req.Model
	if model == "" {
		model = "grid"
	}
	return fmt.Sprintf("%s-%s-%s", label, model, uuid.NewString()[:8])
}

// resolveReward fills the classic coefficients for every zero override, so a
// request can adjust one coefficient without restating the rest. An exact
// zero coefficient is not expressible; pass a tiny value instead.
func resolveReward(perStep, outsideGrid, duplicateBeep float64, shared bool) engine.RewardConfig {
	reward := engine.DefaultRewardConfig()
	if perStep != 0 {
		reward.PerStep = perStep
	}
	if outsideGrid != 0 {
		reward.OutsideGrid = outsideGrid
	}
	if duplicateBeep != 0 {
		reward.DuplicateBeep = duplicateBeep
	}
	reward.Shared = shared
	return reward
}

func summaryFromRecord(record model.RunRecord, benchmarksDir string) RunSummary {
	return RunSummary{
		RunID:           record.RunID,
		ArtifactsDir:    filepath.Join(benchmarksDir, record.RunID),
		Scenario:        record.Scenario,
		Model:           record.Model,
		Agents:          record.Agents,
		Episodes:        record.Episodes,
		StepsPerEpisode: record.StepsPerEpisode,
		Seed:            record.Seed,
		Driver:          record.Driver,
		MeanReturn:      record.MeanReturn,
		BestReturn:      record.BestReturn,
		TotalSteps:      record.TotalSteps,
		BoundaryHits:    record.BoundaryHits,
		DuplicateBeeps:  record.DuplicateBeeps,
		Blocked:         record.Blocked,
		CellsVisited:    record.CellsVisited,
		CreatedAtUTC:    record.CreatedAtUTC,
	}
}
