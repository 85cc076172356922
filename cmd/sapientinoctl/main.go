package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"sapientino/internal/platform"
	"sapientino/internal/scenario"
	"sapientino/internal/stats"
	"sapientino/internal/storage"
	sapi "sapientino/pkg/sapientino"
)

func main() {
	_ = godotenv.Load()
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "bench":
		return runBench(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "report":
		return runReport(ctx, args[1:])
	case "scenarios":
		return runScenarios(ctx, args[1:])
	case "render":
		return runRender(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "version":
		return runVersion(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	scenarioName := fs.String("scenario", "", "built-in scenario: default|open5x5|corridor|pairs")
	mapPath := fs.String("map", "", "path to a map text file (replaces the scenario grid)")
	modelName := fs.String("model", "", "motion model: grid|rotary|continuous")
	agents := fs.Int("agents", 1, "agent count")
	episodes := fs.Int("episodes", 10, "episode count")
	steps := fs.Int("steps", 100, "steps per episode")
	seed := fs.Int64("seed", 1, "rng seed")
	driverName := fs.String("driver", "", "action driver: random|script")
	script := fs.String("script", "", "per-agent scripts separated by ';', each a comma list of action names")
	rewardPerStep := fs.Float64("reward-per-step", 0, "per-step reward override (0 keeps the classic value)")
	rewardOutsideGrid := fs.Float64("reward-outside-grid", 0, "boundary hit reward override (0 keeps the classic value)")
	rewardDuplicateBeep := fs.Float64("reward-duplicate-beep", 0, "duplicate beep reward override (0 keeps the classic value)")
	sharedReward := fs.Bool("shared", false, "broadcast the summed team reward to every agent")
	separation := fs.Float64("separation", 0, "continuous coincidence radius (0 keeps the default)")
	storeKind := fs.String("store", envOr("SAPIENTINO_STORE", storage.DefaultStoreKind()), "store backend: memory|sqlite")
	storePath := fs.String("store-path", envOr("SAPIENTINO_STORE_PATH", platform.DefaultStorePath), "sqlite database path")
	benchmarks := fs.String("benchmarks-dir", envOr("SAPIENTINO_BENCHMARKS_DIR", platform.DefaultBenchmarksDir), "run artifacts directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	mapText, err := readMapFile(*mapPath)
	if err != nil {
		return err
	}

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = sapi.RunRequest{
			Scenario:            *scenarioName,
			MapText:             mapText,
			Model:               *modelName,
			Agents:              *agents,
			Episodes:            *episodes,
			Steps:               *steps,
			Seed:                *seed,
			Driver:              *driverName,
			Script:              splitScripts(*script),
			RunID:               *runID,
			RewardPerStep:       *rewardPerStep,
			RewardOutsideGrid:   *rewardOutsideGrid,
			RewardDuplicateBeep: *rewardDuplicateBeep,
			SharedReward:        *sharedReward,
			Separation:          *separation,
		}
	} else {
		err := overrideFromFlags(&req, setFlags, map[string]any{
			"run-id":                *runID,
			"scenario":              *scenarioName,
			"map":                   mapText,
			"model":                 *modelName,
			"agents":                *agents,
			"episodes":              *episodes,
			"steps":                 *steps,
			"seed":                  *seed,
			"driver":                *driverName,
			"script":                *script,
			"reward-per-step":       *rewardPerStep,
			"reward-outside-grid":   *rewardOutsideGrid,
			"reward-duplicate-beep": *rewardDuplicateBeep,
			"shared":                *sharedReward,
			"separation":            *separation,
		})
		if err != nil {
			return err
		}
	}
	if req.Driver == "" && len(req.Script) > 0 {
		req.Driver = platform.DriverScript
	}

	client, err := sapi.NewClient(sapi.Options{
		StoreKind:     *storeKind,
		StorePath:     *storePath,
		BenchmarksDir: *benchmarks,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("run completed run_id=%s scenario=%s model=%s agents=%d episodes=%d steps=%d seed=%d driver=%s\n",
		summary.RunID,
		summary.Scenario,
		summary.Model,
		summary.Agents,
		summary.Episodes,
		summary.StepsPerEpisode,
		summary.Seed,
		summary.Driver,
	)
	fmt.Printf("mean_return=%.6f best_return=%.6f total_steps=%d\n", summary.MeanReturn, summary.BestReturn, summary.TotalSteps)
	fmt.Printf("boundary_hits=%d duplicate_beeps=%d blocked=%d cells_visited=%d\n", summary.BoundaryHits, summary.DuplicateBeeps, summary.Blocked, summary.CellsVisited)
	fmt.Printf("artifacts_dir=%s\n", filepath.Clean(summary.ArtifactsDir))
	return nil
}

func runBench(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	scenarioName := fs.String("scenario", "", "built-in scenario: default|open5x5|corridor|pairs")
	modelName := fs.String("model", "", "motion model: grid|rotary|continuous")
	agents := fs.Int("agents", 1, "agent count")
	episodes := fs.Int("episodes", 10, "episode count per run")
	steps := fs.Int("steps", 100, "steps per episode")
	runs := fs.Int("runs", 5, "run count, seeded seed..seed+runs-1")
	seed := fs.Int64("seed", 1, "base rng seed")
	storeKind := fs.String("store", envOr("SAPIENTINO_STORE", storage.DefaultStoreKind()), "store backend: memory|sqlite")
	storePath := fs.String("store-path", envOr("SAPIENTINO_STORE_PATH", platform.DefaultStorePath), "sqlite database path")
	benchmarks := fs.String("benchmarks-dir", envOr("SAPIENTINO_BENCHMARKS_DIR", platform.DefaultBenchmarksDir), "run artifacts directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runs <= 0 {
		return errors.New("runs must be > 0")
	}

	reqs := make([]sapi.RunRequest, 0, *runs)
	for i := 0; i < *runs; i++ {
		reqs = append(reqs, sapi.RunRequest{
			Scenario: *scenarioName,
			Model:    *modelName,
			Agents:   *agents,
			Episodes: *episodes,
			Steps:    *steps,
			Seed:     *seed + int64(i),
		})
	}

	client, err := sapi.NewClient(sapi.Options{
		StoreKind:     *storeKind,
		StorePath:     *storePath,
		BenchmarksDir: *benchmarks,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	started := time.Now()
	summaries, err := client.RunSuite(ctx, reqs)
	if err != nil {
		return err
	}
	seconds := time.Since(started).Seconds()

	totalSteps := 0
	totalEpisodes := 0
	runIDs := make([]string, 0, len(summaries))
	returns := make([]float64, 0, len(summaries))
	for _, summary := range summaries {
		totalSteps += summary.TotalSteps
		totalEpisodes += summary.Episodes
		runIDs = append(runIDs, summary.RunID)
		returns = append(returns, summary.MeanReturn)
	}
	returnMean, returnStd, returnMax, returnMin := returnSeriesStats(returns)
	stepsPerSecond := 0.0
	if seconds > 0 {
		stepsPerSecond = float64(totalSteps) / seconds
	}

	first := summaries[0]
	report := stats.BenchSummary{
		Scenario:       first.Scenario,
		Model:          first.Model,
		Agents:         first.Agents,
		Runs:           len(summaries),
		Episodes:       totalEpisodes,
		TotalSteps:     totalSteps,
		ElapsedSeconds: seconds,
		StepsPerSecond: stepsPerSecond,
		ReturnMean:     returnMean,
		ReturnStd:      returnStd,
		ReturnMax:      returnMax,
		ReturnMin:      returnMin,
		CreatedAtUTC:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := stats.WriteBenchSummary(*benchmarks, report); err != nil {
		return err
	}

	graphs, err := stats.BuildReturnGraphs(*benchmarks, runIDs)
	if err != nil {
		return err
	}
	graphPaths, err := stats.WriteReturnGraphs(*benchmarks, graphs)
	if err != nil {
		return err
	}

	fmt.Printf("bench scenario=%s model=%s agents=%d runs=%d episodes=%d total_steps=%s elapsed=%.3fs throughput=%s\n",
		first.Scenario,
		first.Model,
		first.Agents,
		len(summaries),
		totalEpisodes,
		humanize.Comma(int64(totalSteps)),
		seconds,
		humanize.SIWithDigits(stepsPerSecond, 2, "steps/s"),
	)
	fmt.Printf("mean_return mean=%.6f std=%.6f min=%.6f max=%.6f\n", returnMean, returnStd, returnMin, returnMax)
	fmt.Printf("bench_summary=%s\n", filepath.Join(*benchmarks, "bench_summary.json"))
	for _, path := range graphPaths {
		fmt.Printf("graph=%s\n", path)
	}
	return nil
}

func returnSeriesStats(values []float64) (mean, std, max, min float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	min = values[0]
	max = values[0]
	total := 0.0
	for _, value := range values {
		total += value
		if value > max {
			max = value
		}
		if value < min {
			min = value
		}
	}
	mean = total / float64(len(values))
	sumSq := 0.0
	for _, value := range values {
		diff := mean - value
		sumSq += diff * diff
	}
	std = math.Sqrt(sumSq / float64(len(values)))
	return mean, std, max, min
}

func runRuns(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	benchmarks := fs.String("benchmarks-dir", envOr("SAPIENTINO_BENCHMARKS_DIR", platform.DefaultBenchmarksDir), "run artifacts directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	entries, err := stats.ListRunIndex(*benchmarks)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	if len(entries) > *limit {
		entries = entries[:*limit]
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	for _, e := range entries {
		fmt.Printf("run_id=%s created_at=%s scenario=%s model=%s agents=%d episodes=%d seed=%d driver=%s mean_return=%.6f\n",
			e.RunID,
			e.CreatedAtUTC,
			e.Scenario,
			e.Model,
			e.Agents,
			e.Episodes,
			e.Seed,
			e.Driver,
			e.MeanReturn,
		)
	}
	return nil
}

func runReport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "report the most recent run from the run index")
	jsonOut := fs.Bool("json", false, "emit report as JSON")
	storeKind := fs.String("store", envOr("SAPIENTINO_STORE", storage.DefaultStoreKind()), "store backend: memory|sqlite")
	storePath := fs.String("store-path", envOr("SAPIENTINO_STORE_PATH", platform.DefaultStorePath), "sqlite database path")
	benchmarks := fs.String("benchmarks-dir", envOr("SAPIENTINO_BENCHMARKS_DIR", platform.DefaultBenchmarksDir), "run artifacts directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("report requires --run-id or --latest")
	}

	client, err := sapi.NewClient(sapi.Options{
		StoreKind:     *storeKind,
		StorePath:     *storePath,
		BenchmarksDir: *benchmarks,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	report, ok, err := client.Report(ctx, sapi.ReportRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if !ok {
		if *latest {
			fmt.Println("no runs found")
		} else {
			fmt.Printf("run %s not found\n", *runID)
		}
		return nil
	}

	if *jsonOut {
		type summaryItem struct {
			RunID           string  `json:"run_id"`
			ArtifactsDir    string  `json:"artifacts_dir"`
			Scenario        string  `json:"scenario"`
			Model           string  `json:"model"`
			Agents          int     `json:"agents"`
			Episodes        int     `json:"episodes"`
			StepsPerEpisode int     `json:"steps_per_episode"`
			Seed            int64   `json:"seed"`
			Driver          string  `json:"driver"`
			MeanReturn      float64 `json:"mean_return"`
			BestReturn      float64 `json:"best_return"`
			TotalSteps      int     `json:"total_steps"`
			BoundaryHits    int     `json:"boundary_hits"`
			DuplicateBeeps  int     `json:"duplicate_beeps"`
			Blocked         int     `json:"blocked"`
			CellsVisited    int     `json:"cells_visited"`
			CreatedAtUTC    string  `json:"created_at_utc"`
		}
		payload := struct {
			Summary  summaryItem `json:"summary"`
			Episodes any         `json:"episodes"`
		}{
			Summary: summaryItem{
				RunID:           report.Summary.RunID,
				ArtifactsDir:    report.Summary.ArtifactsDir,
				Scenario:        report.Summary.Scenario,
				Model:           report.Summary.Model,
				Agents:          report.Summary.Agents,
				Episodes:        report.Summary.Episodes,
				StepsPerEpisode: report.Summary.StepsPerEpisode,
				Seed:            report.Summary.Seed,
				Driver:          report.Summary.Driver,
				MeanReturn:      report.Summary.MeanReturn,
				BestReturn:      report.Summary.BestReturn,
				TotalSteps:      report.Summary.TotalSteps,
				BoundaryHits:    report.Summary.BoundaryHits,
				DuplicateBeeps:  report.Summary.DuplicateBeeps,
				Blocked:         report.Summary.Blocked,
				CellsVisited:    report.Summary.CellsVisited,
				CreatedAtUTC:    report.Summary.CreatedAtUTC,
			},
			Episodes: report.Episodes,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	s := report.Summary
	fmt.Printf("run_id=%s scenario=%s model=%s agents=%d episodes=%d steps=%d seed=%d driver=%s created_at=%s\n",
		s.RunID,
		s.Scenario,
		s.Model,
		s.Agents,
		s.Episodes,
		s.StepsPerEpisode,
		s.Seed,
		s.Driver,
		s.CreatedAtUTC,
	)
	fmt.Printf("mean_return=%.6f best_return=%.6f total_steps=%d\n", s.MeanReturn, s.BestReturn, s.TotalSteps)
	fmt.Printf("boundary_hits=%d duplicate_beeps=%d blocked=%d cells_visited=%d\n", s.BoundaryHits, s.DuplicateBeeps, s.Blocked, s.CellsVisited)
	for _, ep := range report.Episodes {
		fmt.Printf("episode=%d return=%.6f steps=%d boundary_hits=%d duplicate_beeps=%d blocked=%d cells_visited=%d\n",
			ep.Episode,
			ep.Return,
			ep.Steps,
			ep.BoundaryHits,
			ep.DuplicateBeeps,
			ep.Blocked,
			ep.CellsVisited,
		)
	}
	fmt.Printf("artifacts_dir=%s\n", filepath.Clean(s.ArtifactsDir))
	return nil
}

func runScenarios(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("scenarios", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, name := range scenario.Names() {
		sc, ok := scenario.Lookup(name)
		if !ok {
			continue
		}
		g, err := sc.Grid()
		if err != nil {
			return err
		}
		fmt.Printf("name=%s model=%s width=%d height=%d starts=%d description=%s\n",
			sc.Name,
			sc.Model.String(),
			g.Width(),
			g.Height(),
			len(sc.Starts),
			sc.Description,
		)
	}
	return nil
}

func runRender(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	scenarioName := fs.String("scenario", "", "built-in scenario: default|open5x5|corridor|pairs")
	mapPath := fs.String("map", "", "path to a map text file (replaces the scenario grid)")
	modelName := fs.String("model", "", "motion model: grid|rotary|continuous")
	agents := fs.Int("agents", 1, "agent count")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mapText, err := readMapFile(*mapPath)
	if err != nil {
		return err
	}

	client, err := sapi.NewClient(sapi.Options{StoreKind: "memory"})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	eng, err := client.NewEngine(sapi.EngineRequest{
		Scenario: *scenarioName,
		MapText:  mapText,
		Model:    *modelName,
		Agents:   *agents,
	})
	if err != nil {
		return err
	}
	eng.Reset()
	fmt.Println(eng.Snapshot().Render())
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	storeKind := fs.String("store", envOr("SAPIENTINO_STORE", storage.DefaultStoreKind()), "store backend: memory|sqlite")
	storePath := fs.String("store-path", envOr("SAPIENTINO_STORE_PATH", platform.DefaultStorePath), "sqlite database path")
	benchmarks := fs.String("benchmarks-dir", envOr("SAPIENTINO_BENCHMARKS_DIR", platform.DefaultBenchmarksDir), "run artifacts directory")
	yes := fs.Bool("yes", false, "confirm deleting stored runs and artifacts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return errors.New("reset deletes stored runs and artifacts, re-run with --yes")
	}

	lab, err := platform.New(platform.Config{
		StoreKind:     *storeKind,
		StorePath:     *storePath,
		BenchmarksDir: *benchmarks,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = lab.Close()
	}()

	if err := lab.ResetStore(ctx); err != nil {
		return err
	}
	if err := os.RemoveAll(*benchmarks); err != nil {
		return err
	}

	fmt.Printf("reset store=%s benchmarks_dir=%s\n", *storeKind, *benchmarks)
	return nil
}

func runVersion(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	version := storage.CurrentVersion()
	fmt.Printf("sapientinoctl schema_version=%d codec_version=%d\n", version.SchemaVersion, version.CodecVersion)
	return nil
}

func readMapFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read map: %w", err)
	}
	return string(data), nil
}

func splitScripts(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	scripts := make([]string, 0, len(parts))
	for _, part := range parts {
		scripts = append(scripts, strings.TrimSpace(part))
	}
	return scripts
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: sapientinoctl <run|bench|runs|report|scenarios|render|reset|version> [flags]", msg)
}
