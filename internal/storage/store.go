package storage

import (
	"context"

	"nklandscape/internal/model"
)

// Store defines persistence operations for simulation runs.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.Run) error
	GetRun(ctx context.Context, id string) (model.Run, bool, error)
	ListRuns(ctx context.Context) ([]model.Run, error)
	SaveFitness(ctx context.Context, trajectories model.FitnessTrajectories) error
	GetFitness(ctx context.Context, runID string) (model.FitnessTrajectories, bool, error)
	SaveStatistics(ctx context.Context, record model.StatisticsRecord) error
	GetStatistics(ctx context.Context, runID string) (model.StatisticsRecord, bool, error)
}
