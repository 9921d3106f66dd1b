//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"nklandscape/internal/model"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nklandscape.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	run := model.Run{
		VersionedRecord: CurrentVersion(),
		ID:              "run-1",
		Parameters:      model.RunParameters{N: 2, K: 0, Matrix: "random", Time: 3, Repeat: 1},
		Matrix:          [][]int{{1, 0}, {0, 1}},
		CreatedAtUTC:    "2026-01-01T00:00:00Z",
	}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	loaded, ok, err := store.GetRun(ctx, run.ID)
	if err != nil || !ok {
		t.Fatalf("get run: ok=%v err=%v", ok, err)
	}
	if loaded.Parameters.N != 2 || len(loaded.Matrix) != 2 {
		t.Fatalf("unexpected run: %+v", loaded)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	if err := store.SaveFitness(ctx, model.FitnessTrajectories{
		VersionedRecord: CurrentVersion(),
		RunID:           run.ID,
		Rounds:          [][]float64{{0.2, 0.4, 0.8}},
	}); err != nil {
		t.Fatalf("save fitness: %v", err)
	}
	fitness, ok, err := store.GetFitness(ctx, run.ID)
	if err != nil || !ok {
		t.Fatalf("get fitness: ok=%v err=%v", ok, err)
	}
	if len(fitness.Rounds) != 1 || fitness.Rounds[0][2] != 0.8 {
		t.Fatalf("unexpected fitness: %+v", fitness)
	}

	if err := store.SaveStatistics(ctx, model.StatisticsRecord{
		VersionedRecord: CurrentVersion(),
		RunID:           run.ID,
		Confidence:      0.9,
		Statistics:      model.Statistics{Mean: []float64{0.2, 0.4, 0.8}},
	}); err != nil {
		t.Fatalf("save statistics: %v", err)
	}
	stats, ok, err := store.GetStatistics(ctx, run.ID)
	if err != nil || !ok {
		t.Fatalf("get statistics: ok=%v err=%v", ok, err)
	}
	if stats.Confidence != 0.9 {
		t.Fatalf("unexpected statistics: %+v", stats)
	}

	if _, ok, err := store.GetStatistics(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing statistics, ok=%v err=%v", ok, err)
	}
}

func TestNewStoreSQLite(t *testing.T) {
	store, err := NewStore("sqlite", filepath.Join(t.TempDir(), "factory.db"))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := CloseIfSupported(store); err != nil {
		t.Fatalf("close: %v", err)
	}
}
