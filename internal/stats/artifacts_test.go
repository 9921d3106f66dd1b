package stats

import (
	"os"
	"path/filepath"
	"testing"

	"nklandscape/internal/model"
)

func sampleArtifacts(runID string) RunArtifacts {
	return RunArtifacts{
		RunID: runID,
		Parameters: model.RunParameters{
			N:          3,
			K:          1,
			Matrix:     "random",
			Time:       2,
			Repeat:     2,
			Std:        0.1,
			Confidence: 0.9,
			Alleles:    2,
			Seed:       7,
		},
		Matrix: [][]int{{1, 1, 0}, {0, 1, 1}, {1, 0, 1}},
		Statistics: model.Statistics{
			Mean:      []float64{0.5, 0.75, 0.9},
			LowerConf: []float64{0.4, 0.7, 0.85},
			UpperConf: []float64{0.6, 0.8, 0.95},
		},
		Fitness: [][]float64{{0.4, 0.7, 0.9}, {0.6, 0.8, 0.9}},
		Rounds: []model.RoundSummary{
			{Round: 0, GlobalMaxPosition: "110", GlobalMaxFitness: 0.88, InitialFitness: 0.4, FinalFitness: 0.9, Moves: 2},
			{Round: 1, GlobalMaxPosition: "110", GlobalMaxFitness: 0.88, InitialFitness: 0.6, FinalFitness: 0.9, Moves: 1},
		},
	}
}

func TestWriteAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	runID := "run-123"
	runDir, err := WriteRunArtifacts(baseDir, sampleArtifacts(runID))
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	files := []string{"parameters.json", "statistics.json", "fitness.json", "matrix.json", "rounds.json", "fitness_series.csv"}
	for _, file := range files {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}

	exportedDir, err := ExportRunArtifacts(baseDir, runID, outDir)
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}
	for _, file := range files {
		if _, err := os.Stat(filepath.Join(exportedDir, file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}
	if _, err := os.Stat(filepath.Join(exportedDir, FitnessPlotFile)); !os.IsNotExist(err) {
		t.Fatalf("expected no exported plot, got err=%v", err)
	}

	if _, err := ExportRunArtifacts(baseDir, "missing", outDir); err == nil {
		t.Fatal("expected export of unknown run to fail")
	}
}

func TestReadRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	want := sampleArtifacts("run-read")
	if _, err := WriteRunArtifacts(baseDir, want); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	params, ok, err := ReadParameters(baseDir, want.RunID)
	if err != nil || !ok {
		t.Fatalf("read parameters: ok=%t err=%v", ok, err)
	}
	if params != want.Parameters {
		t.Fatalf("unexpected parameters: %+v", params)
	}

	statistics, ok, err := ReadStatistics(baseDir, want.RunID)
	if err != nil || !ok {
		t.Fatalf("read statistics: ok=%t err=%v", ok, err)
	}
	if len(statistics.Mean) != 3 || statistics.Mean[1] != 0.75 || statistics.UpperConf[2] != 0.95 {
		t.Fatalf("unexpected statistics: %+v", statistics)
	}

	fitness, ok, err := ReadFitness(baseDir, want.RunID)
	if err != nil || !ok {
		t.Fatalf("read fitness: ok=%t err=%v", ok, err)
	}
	if len(fitness) != 2 || fitness[1][0] != 0.6 || fitness[0][1] != 0.7 {
		t.Fatalf("unexpected fitness: %+v", fitness)
	}

	rounds, ok, err := ReadRounds(baseDir, want.RunID)
	if err != nil || !ok {
		t.Fatalf("read rounds: ok=%t err=%v", ok, err)
	}
	if len(rounds) != len(want.Rounds) || rounds[0] != want.Rounds[0] {
		t.Fatalf("unexpected rounds: %+v", rounds)
	}

	series, ok, err := ReadFitnessSeries(baseDir, want.RunID)
	if err != nil || !ok {
		t.Fatalf("read fitness series: ok=%t err=%v", ok, err)
	}
	for i := range want.Statistics.Mean {
		if series.Mean[i] != want.Statistics.Mean[i] || series.LowerConf[i] != want.Statistics.LowerConf[i] || series.UpperConf[i] != want.Statistics.UpperConf[i] {
			t.Fatalf("series row %d mismatch: %+v", i, series)
		}
	}

	if _, ok, err := ReadStatistics(baseDir, "missing"); err != nil || ok {
		t.Fatalf("expected missing statistics to report ok=false, got ok=%t err=%v", ok, err)
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{}); err == nil {
		t.Fatal("expected missing run id error")
	}
}

func TestRunIndexAppendListAndUpsert(t *testing.T) {
	baseDir := t.TempDir()

	err := AppendRunIndex(baseDir, RunIndexEntry{
		RunID:        "run-1",
		Matrix:       "random",
		N:            5,
		K:            2,
		FinalMean:    0.85,
		CreatedAtUTC: "2026-02-10T12:00:00Z",
	})
	if err != nil {
		t.Fatalf("append run-1: %v", err)
	}
	err = AppendRunIndex(baseDir, RunIndexEntry{
		RunID:        "run-2",
		Matrix:       "ring-5-2",
		N:            5,
		K:            2,
		FinalMean:    0.80,
		CreatedAtUTC: "2026-02-10T12:05:00Z",
	})
	if err != nil {
		t.Fatalf("append run-2: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "run-2" {
		t.Fatalf("expected newest entry first, got %+v", entries)
	}

	err = AppendRunIndex(baseDir, RunIndexEntry{
		RunID:        "run-1",
		Matrix:       "random",
		N:            5,
		K:            2,
		FinalMean:    0.90,
		CreatedAtUTC: "2026-02-10T12:10:00Z",
	})
	if err != nil {
		t.Fatalf("upsert run-1: %v", err)
	}

	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list after upsert: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after upsert, got %d", len(entries))
	}
	if entries[0].RunID != "run-1" || entries[0].FinalMean != 0.90 {
		t.Fatalf("unexpected upsert result: %+v", entries[0])
	}
}

func TestRunIndexEqualTimestampPrefersLaterAppend(t *testing.T) {
	baseDir := t.TempDir()
	ts := "2026-02-10T12:00:00Z"

	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-a", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-a: %v", err)
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-b", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-b: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "run-b" {
		t.Fatalf("expected latest appended run-b first, got %+v", entries)
	}
}
