package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"nklandscape/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.Run
	fitness     map[string]model.FitnessTrajectories
	statistics  map[string]model.StatisticsRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.Run)
	s.fitness = make(map[string]model.FitnessTrajectories)
	s.statistics = make(map[string]model.StatisticsRecord)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	run.Matrix = cloneRows(run.Matrix)
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return model.Run{}, false, nil
	}
	run.Matrix = cloneRows(run.Matrix)
	return run, true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.Run, 0, len(s.runs))
	for _, run := range s.runs {
		run.Matrix = cloneRows(run.Matrix)
		runs = append(runs, run)
	}
	sortRuns(runs)
	return runs, nil
}

func (s *MemoryStore) SaveFitness(_ context.Context, trajectories model.FitnessTrajectories) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.fitness[trajectories.RunID] = cloneTrajectories(trajectories)
	return nil
}

func (s *MemoryStore) GetFitness(_ context.Context, runID string) (model.FitnessTrajectories, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trajectories, ok := s.fitness[runID]
	if !ok {
		return model.FitnessTrajectories{}, false, nil
	}
	return cloneTrajectories(trajectories), true, nil
}

func (s *MemoryStore) SaveStatistics(_ context.Context, record model.StatisticsRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.statistics[record.RunID] = cloneStatistics(record)
	return nil
}

func (s *MemoryStore) GetStatistics(_ context.Context, runID string) (model.StatisticsRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.statistics[runID]
	if !ok {
		return model.StatisticsRecord{}, false, nil
	}
	return cloneStatistics(record), true, nil
}

var errNotInitialized = errors.New("store is not initialized")

// sortRuns orders newest first; equal timestamps fall back to id.
func sortRuns(runs []model.Run) {
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAtUTC == runs[j].CreatedAtUTC {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].CreatedAtUTC > runs[j].CreatedAtUTC
	})
}

func cloneRows(rows [][]int) [][]int {
	if rows == nil {
		return nil
	}
	out := make([][]int, len(rows))
	for i, row := range rows {
		out[i] = append([]int(nil), row...)
	}
	return out
}

func cloneTrajectories(t model.FitnessTrajectories) model.FitnessTrajectories {
	rounds := make([][]float64, len(t.Rounds))
	for i, round := range t.Rounds {
		rounds[i] = append([]float64(nil), round...)
	}
	t.Rounds = rounds
	t.Summary = append([]model.RoundSummary(nil), t.Summary...)
	return t
}

func cloneStatistics(r model.StatisticsRecord) model.StatisticsRecord {
	r.Statistics = model.Statistics{
		Mean:      append([]float64(nil), r.Statistics.Mean...),
		UpperConf: append([]float64(nil), r.Statistics.UpperConf...),
		LowerConf: append([]float64(nil), r.Statistics.LowerConf...),
	}
	return r
}
