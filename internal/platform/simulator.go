package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"nklandscape/internal/agent"
	"nklandscape/internal/model"
	"nklandscape/internal/scape"
	"nklandscape/internal/storage"
)

var ErrNotInitialized = errors.New("simulator is not initialized")

type Config struct {
	RunID                string
	Matrix               *scape.Matrix
	Time                 int
	Repeat               int
	ErrorMean            float64
	ErrorStd             float64
	Alleles              int
	Seed                 int64
	Workers              int
	SearchWorkers        int
	NormalizedPerception bool
	// Parameters is persisted with the run when a store is configured.
	Parameters model.RunParameters
}

type Result struct {
	RunID   string
	Fitness [][]float64
	Rounds  []model.RoundSummary
}

// Simulator runs independent rounds of one agent hill-climbing a freshly
// sampled landscape, all rounds sharing one interdependency matrix.
type Simulator struct {
	store  storage.Store
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	started bool
}

func NewSimulator(store storage.Store, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Simulator) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if s.store != nil {
		if err := s.store.Init(ctx); err != nil {
			return fmt.Errorf("init store: %w", err)
		}
	}
	s.started = true
	return nil
}

func (s *Simulator) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Run executes cfg.Repeat rounds of cfg.Time steps. Round r draws all of its
// randomness from a source seeded with cfg.Seed+r, so results do not depend
// on cfg.Workers.
func (s *Simulator) Run(ctx context.Context, cfg Config) (Result, error) {
	if !s.Started() {
		return Result{}, ErrNotInitialized
	}
	if cfg.Matrix == nil {
		return Result{}, fmt.Errorf("matrix is required")
	}
	if cfg.Time < 1 {
		return Result{}, fmt.Errorf("time must be positive: %d", cfg.Time)
	}
	if cfg.Repeat < 1 {
		return Result{}, fmt.Errorf("repeat must be positive: %d", cfg.Repeat)
	}
	if cfg.ErrorStd < 0 {
		return Result{}, fmt.Errorf("error std must be non-negative: %v", cfg.ErrorStd)
	}
	if cfg.Alleles == 0 {
		cfg.Alleles = scape.DefaultAlleles
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.SearchWorkers <= 0 {
		cfg.SearchWorkers = searchWorkers(cfg.Workers, cfg.Repeat)
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := s.logger.With("run_id", runID)
	logger.Info("simulation started",
		"n", cfg.Matrix.N(),
		"k", cfg.Matrix.K(),
		"time", cfg.Time,
		"repeat", cfg.Repeat,
		"error_mean", cfg.ErrorMean,
		"error_std", cfg.ErrorStd,
		"workers", cfg.Workers,
	)
	started := s.now()

	fitness := make([][]float64, cfg.Repeat)
	rounds := make([]model.RoundSummary, cfg.Repeat)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for round := 0; round < cfg.Repeat; round++ {
		round := round
		g.Go(func() error {
			trajectory, summary, err := runRound(gctx, runID, round, cfg)
			if err != nil {
				return fmt.Errorf("round %d: %w", round, err)
			}
			fitness[round] = trajectory
			rounds[round] = summary
			logger.Debug("round finished",
				"round", round,
				"global_max", summary.GlobalMaxPosition,
				"final_fitness", summary.FinalFitness,
				"moves", summary.Moves,
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	result := Result{RunID: runID, Fitness: fitness, Rounds: rounds}
	if err := s.persist(ctx, cfg, result); err != nil {
		return Result{}, err
	}
	logger.Info("simulation finished", "elapsed", s.now().Sub(started).String())
	return result, nil
}

func runRound(ctx context.Context, runID string, round int, cfg Config) ([]float64, model.RoundSummary, error) {
	rng := rand.New(rand.NewSource(cfg.Seed + int64(round)))
	landscape, err := scape.NewLandscape(rng, cfg.Matrix,
		scape.WithAlleles(cfg.Alleles),
		scape.WithWorkers(cfg.SearchWorkers),
		scape.WithContext(ctx),
	)
	if err != nil {
		return nil, model.RoundSummary{}, err
	}
	a, err := agent.New(
		fmt.Sprintf("%s/round-%d", runID, round),
		rng,
		cfg.Matrix,
		cfg.ErrorMean,
		cfg.ErrorStd,
		agent.WithNormalizedPerception(cfg.NormalizedPerception),
	)
	if err != nil {
		return nil, model.RoundSummary{}, err
	}

	trajectory := make([]float64, 0, cfg.Time)
	current, err := landscape.FitnessOfGenome(a.Position(), true)
	if err != nil {
		return nil, model.RoundSummary{}, err
	}
	trajectory = append(trajectory, current)
	initial := current

	moves := 0
	for t := 1; t < cfg.Time; t++ {
		if err := ctx.Err(); err != nil {
			return nil, model.RoundSummary{}, err
		}
		moved, err := a.Evolve(landscape)
		if err != nil {
			return nil, model.RoundSummary{}, err
		}
		if moved {
			moves++
			current, err = landscape.FitnessOfGenome(a.Position(), true)
			if err != nil {
				return nil, model.RoundSummary{}, err
			}
		}
		trajectory = append(trajectory, current)
	}

	maxPosition, maxFitness := landscape.GlobalMax()
	return trajectory, model.RoundSummary{
		Round:             round,
		GlobalMaxPosition: maxPosition.String(),
		GlobalMaxFitness:  maxFitness,
		InitialFitness:    initial,
		FinalFitness:      current,
		Moves:             moves,
		ReachedGlobalMax:  a.Position().String() == maxPosition.String(),
	}, nil
}

func (s *Simulator) persist(ctx context.Context, cfg Config, result Result) error {
	if s.store == nil {
		return nil
	}
	params := cfg.Parameters
	if params.N == 0 {
		params = model.RunParameters{
			N:          cfg.Matrix.N(),
			K:          cfg.Matrix.K(),
			Time:       cfg.Time,
			Repeat:     cfg.Repeat,
			Mean:       cfg.ErrorMean,
			Std:        cfg.ErrorStd,
			Alleles:    cfg.Alleles,
			Seed:       cfg.Seed,
			Workers:    cfg.Workers,
			Normalized: cfg.NormalizedPerception,
		}
	}
	run := model.Run{
		VersionedRecord: storage.CurrentVersion(),
		ID:              result.RunID,
		Parameters:      params,
		Matrix:          cfg.Matrix.Rows(),
		CreatedAtUTC:    s.now().UTC().Format(time.RFC3339Nano),
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("save run %s: %w", result.RunID, err)
	}
	if err := s.store.SaveFitness(ctx, model.FitnessTrajectories{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           result.RunID,
		Rounds:          result.Fitness,
		Summary:         result.Rounds,
	}); err != nil {
		return fmt.Errorf("save fitness %s: %w", result.RunID, err)
	}
	return nil
}

// searchWorkers returns the share of a worker budget left to each round's
// global-max search once min(workers, repeat) rounds run side by side.
func searchWorkers(workers, repeat int) int {
	parallel := min(workers, repeat)
	if parallel < 1 {
		return 1
	}
	return max(1, workers/parallel)
}
