package nklandscape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"time"

	"nklandscape/internal/model"
	"nklandscape/internal/platform"
	"nklandscape/internal/scape"
	"nklandscape/internal/scapeid"
	"nklandscape/internal/stats"
	"nklandscape/internal/storage"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "nklandscape.db"

	DefaultN          = 5
	DefaultK          = 2
	DefaultTime       = 100
	DefaultRepeat     = 8
	DefaultConfidence = 0.9
)

var ErrInvalidMatrix = errors.New("invalid parameter for matrix")

type Options struct {
	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string
	Logger     *slog.Logger
}

type Client struct {
	store     storage.Store
	simulator *platform.Simulator
	logger    *slog.Logger

	runsDir    string
	exportsDir string
}

type RunRequest struct {
	RunID      string
	N          int
	K          int
	Matrix     string
	Time       int
	Repeat     int
	Mean       float64
	Std        float64
	Confidence float64
	Alleles    int
	Seed       int64
	Workers    int
	Normalized bool
	Plot       bool
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	PlotPath     string
	Parameters   model.RunParameters
	Statistics   model.Statistics
	Rounds       []model.RoundSummary
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Matrix       string
	N            int
	K            int
	Time         int
	Repeat       int
	Seed         int64
	ErrorMean    float64
	ErrorStd     float64
	FinalMean    float64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type ShowRequest struct {
	RunID  string
	Latest bool
}

type ShowResult struct {
	RunID      string
	Parameters model.RunParameters
	Statistics model.Statistics
	// Trajectories holds normalized fitness per round and time step.
	Trajectories [][]float64
	Rounds       []model.RoundSummary
}

type MatrixRequest struct {
	N      int
	K      int
	Seed   int64
	Preset string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		logger:     logger,
		runsDir:    runsDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensureSimulator(ctx)
	return err
}

// MatrixSeed derives the generator seed for a run seed. Round r of a run
// draws from seed+r, so the matrix uses a value taken from that stream
// instead of the seed itself.
func MatrixSeed(seed int64) int64 {
	return rand.New(rand.NewSource(seed)).Int63()
}

// ResolveMatrix returns the named preset, or a generated N×K matrix when the
// name is "random". The generator is seeded with MatrixSeed(seed).
func ResolveMatrix(name string, n, k int, seed int64) (*scape.Matrix, error) {
	canonical := scapeid.Normalize(name)
	if canonical == "" {
		canonical = scapeid.Random
	}
	if canonical == scapeid.Random {
		m, err := scape.GenerateMatrix(rand.New(rand.NewSource(MatrixSeed(seed))), n, k)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidMatrix, err)
		}
		return m, nil
	}
	m, err := scape.Preset(canonical)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMatrix, name)
	}
	return m, nil
}

func (c *Client) Matrix(_ context.Context, req MatrixRequest) (*scape.Matrix, error) {
	if req.Preset != "" {
		return ResolveMatrix(req.Preset, 0, 0, req.Seed)
	}
	if req.N <= 0 {
		req.N = DefaultN
	}
	return ResolveMatrix(scapeid.Random, req.N, req.K, req.Seed)
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.N <= 0 {
		req.N = DefaultN
	}
	if req.K < 0 {
		return RunSummary{}, fmt.Errorf("k must be >= 0")
	}
	if req.Matrix == "" {
		req.Matrix = scapeid.Random
	}
	if req.Time <= 0 {
		req.Time = DefaultTime
	}
	if req.Repeat <= 0 {
		req.Repeat = DefaultRepeat
	}
	if req.Confidence == 0 {
		req.Confidence = DefaultConfidence
	}
	if req.Confidence <= 0 || req.Confidence >= 1 {
		return RunSummary{}, fmt.Errorf("confidence must be in (0,1): %v", req.Confidence)
	}
	if req.Alleles == 0 {
		req.Alleles = scape.DefaultAlleles
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}

	matrix, err := ResolveMatrix(req.Matrix, req.N, req.K, req.Seed)
	if err != nil {
		return RunSummary{}, err
	}
	req.N, req.K = matrix.N(), matrix.K()

	sim, err := c.ensureSimulator(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	params := model.RunParameters{
		N:          req.N,
		K:          req.K,
		Matrix:     scapeid.Normalize(req.Matrix),
		Time:       req.Time,
		Repeat:     req.Repeat,
		Mean:       req.Mean,
		Std:        req.Std,
		Confidence: req.Confidence,
		Alleles:    req.Alleles,
		Seed:       req.Seed,
		Workers:    req.Workers,
		Normalized: req.Normalized,
	}
	result, err := sim.Run(ctx, platform.Config{
		RunID:                req.RunID,
		Matrix:               matrix,
		Time:                 req.Time,
		Repeat:               req.Repeat,
		ErrorMean:            req.Mean,
		ErrorStd:             req.Std,
		Alleles:              req.Alleles,
		Seed:                 req.Seed,
		Workers:              req.Workers,
		NormalizedPerception: req.Normalized,
		Parameters:           params,
	})
	if err != nil {
		return RunSummary{}, err
	}

	statistics, err := stats.ComputeStatistics(result.Fitness, req.Confidence)
	if err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveStatistics(ctx, model.StatisticsRecord{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           result.RunID,
		Confidence:      req.Confidence,
		Statistics:      statistics,
	}); err != nil {
		return RunSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		RunID:      result.RunID,
		Parameters: params,
		Matrix:     matrix.Rows(),
		Statistics: statistics,
		Fitness:    result.Fitness,
		Rounds:     result.Rounds,
	})
	if err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{
		RunID:        result.RunID,
		ArtifactsDir: runDir,
		Parameters:   params,
		Statistics:   statistics,
		Rounds:       result.Rounds,
	}
	if req.Plot {
		summary.PlotPath = filepath.Join(runDir, stats.FitnessPlotFile)
		if err := stats.WriteFitnessPlot(summary.PlotPath, statistics, req.Confidence); err != nil {
			return RunSummary{}, fmt.Errorf("write plot: %w", err)
		}
	}

	finalMean := statistics.Mean[len(statistics.Mean)-1]
	if err := stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:        result.RunID,
		Matrix:       params.Matrix,
		N:            params.N,
		K:            params.K,
		Time:         params.Time,
		Repeat:       params.Repeat,
		Seed:         params.Seed,
		ErrorMean:    params.Mean,
		ErrorStd:     params.Std,
		FinalMean:    finalMean,
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return RunSummary{}, err
	}

	c.logger.Info("run recorded", "run_id", result.RunID, "dir", runDir, "final_mean_fitness", finalMean)
	return summary, nil
}

// Runs lists recorded runs, newest first. Runs held by the store are listed
// from it; the runs directory index is used when the store is empty.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if _, err := c.ensureSimulator(ctx); err != nil {
		return nil, err
	}

	stored, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(stored) > 0 {
		if len(stored) > req.Limit {
			stored = stored[:req.Limit]
		}
		out := make([]RunItem, 0, len(stored))
		for _, run := range stored {
			item := RunItem{
				RunID:        run.ID,
				CreatedAtUTC: run.CreatedAtUTC,
				Matrix:       run.Parameters.Matrix,
				N:            run.Parameters.N,
				K:            run.Parameters.K,
				Time:         run.Parameters.Time,
				Repeat:       run.Parameters.Repeat,
				Seed:         run.Parameters.Seed,
				ErrorMean:    run.Parameters.Mean,
				ErrorStd:     run.Parameters.Std,
			}
			record, ok, err := c.store.GetStatistics(ctx, run.ID)
			if err != nil {
				return nil, err
			}
			if ok && len(record.Statistics.Mean) > 0 {
				item.FinalMean = record.Statistics.Mean[len(record.Statistics.Mean)-1]
			}
			out = append(out, item)
		}
		return out, nil
	}

	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:        e.RunID,
			CreatedAtUTC: e.CreatedAtUTC,
			Matrix:       e.Matrix,
			N:            e.N,
			K:            e.K,
			Time:         e.Time,
			Repeat:       e.Repeat,
			Seed:         e.Seed,
			ErrorMean:    e.ErrorMean,
			ErrorStd:     e.ErrorStd,
			FinalMean:    e.FinalMean,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "export")
	if err != nil {
		return ExportSummary{}, err
	}

	exportedDir, err := stats.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Show returns a run's parameters, statistics and per-round trajectories,
// read from the store when it holds the run and from the artifacts directory
// otherwise.
func (c *Client) Show(ctx context.Context, req ShowRequest) (ShowResult, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, "show")
	if err != nil {
		return ShowResult{}, err
	}
	if _, err := c.ensureSimulator(ctx); err != nil {
		return ShowResult{}, err
	}

	result := ShowResult{RunID: runID}
	run, runOK, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return ShowResult{}, err
	}
	record, statsOK, err := c.store.GetStatistics(ctx, runID)
	if err != nil {
		return ShowResult{}, err
	}
	if runOK && statsOK {
		result.Parameters, result.Statistics = run.Parameters, record.Statistics
	} else if err := c.readRunArtifacts(runID, &result); err != nil {
		return ShowResult{}, err
	}

	fitness, ok, err := c.store.GetFitness(ctx, runID)
	if err != nil {
		return ShowResult{}, err
	}
	if ok {
		result.Trajectories, result.Rounds = fitness.Rounds, fitness.Summary
		return result, nil
	}
	if result.Trajectories, _, err = stats.ReadFitness(c.runsDir, runID); err != nil {
		return ShowResult{}, err
	}
	if result.Rounds, _, err = stats.ReadRounds(c.runsDir, runID); err != nil {
		return ShowResult{}, err
	}
	return result, nil
}

// readRunArtifacts fills parameters and statistics from the runs directory.
// Statistics fall back to fitness_series.csv when statistics.json is gone.
func (c *Client) readRunArtifacts(runID string, result *ShowResult) error {
	params, ok, err := stats.ReadParameters(c.runsDir, runID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("run not found: %s", runID)
	}
	statistics, ok, err := stats.ReadStatistics(c.runsDir, runID)
	if err != nil {
		return err
	}
	if !ok {
		statistics, ok, err = stats.ReadFitnessSeries(c.runsDir, runID)
		if err != nil {
			return err
		}
	}
	if !ok {
		return fmt.Errorf("statistics not found for run id: %s", runID)
	}
	result.Parameters, result.Statistics = params, statistics
	return nil
}

func (c *Client) resolveRunID(runID string, latest bool, action string) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", fmt.Errorf("%s requires run id or latest", action)
	}
	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func (c *Client) ensureSimulator(ctx context.Context) (*platform.Simulator, error) {
	if c.simulator != nil {
		return c.simulator, nil
	}
	sim := platform.NewSimulator(c.store, c.logger)
	if err := sim.Init(ctx); err != nil {
		return nil, err
	}
	c.simulator = sim
	return c.simulator, nil
}
