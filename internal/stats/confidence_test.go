package stats

import (
	"math"
	"testing"
)

func TestComputeStatisticsMeans(t *testing.T) {
	fitness := [][]float64{
		{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7},
		{0.05, 0.15, 0.25, 0.35, 0.45, 0.55, 0.65},
		{0.15, 0.25, 0.35, 0.45, 0.55, 0.65, 0.75},
	}
	got, err := ComputeStatistics(fitness, 0.99)
	if err != nil {
		t.Fatalf("compute statistics: %v", err)
	}
	want := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7}
	if len(got.Mean) != len(want) || len(got.UpperConf) != len(want) || len(got.LowerConf) != len(want) {
		t.Fatalf("unexpected lengths: %+v", got)
	}
	for i := range want {
		if math.Abs(got.Mean[i]-want[i]) > 1e-9 {
			t.Fatalf("mean[%d]=%v want %v", i, got.Mean[i], want[i])
		}
	}
	// t(0.995, df=2) * sem(0.1, 0.05, 0.15)
	const half = 0.2865055446857497
	if math.Abs(got.UpperConf[0]-(0.1+half)) > 1e-6 || math.Abs(got.LowerConf[0]-(0.1-half)) > 1e-6 {
		t.Fatalf("unexpected interval [%v, %v]", got.LowerConf[0], got.UpperConf[0])
	}
}

func TestComputeStatisticsLargeSampleUsesNormal(t *testing.T) {
	fitness := make([][]float64, 36)
	for i := range fitness {
		fitness[i] = []float64{float64(i % 2)}
	}
	got, err := ComputeStatistics(fitness, 0.9)
	if err != nil {
		t.Fatalf("compute statistics: %v", err)
	}
	if math.Abs(got.Mean[0]-0.5) > 1e-12 {
		t.Fatalf("unexpected mean %v", got.Mean[0])
	}
	if math.Abs(got.LowerConf[0]-0.3609844958776331) > 1e-6 {
		t.Fatalf("unexpected lower bound %v", got.LowerConf[0])
	}
}

func TestComputeStatisticsSingleRoundCollapses(t *testing.T) {
	got, err := ComputeStatistics([][]float64{{0.3, 0.4}}, 0.9)
	if err != nil {
		t.Fatalf("compute statistics: %v", err)
	}
	if got.LowerConf[1] != 0.4 || got.UpperConf[1] != 0.4 {
		t.Fatalf("expected collapsed interval, got [%v, %v]", got.LowerConf[1], got.UpperConf[1])
	}
}

func TestComputeStatisticsRejectsInvalidInput(t *testing.T) {
	if _, err := ComputeStatistics(nil, 0.9); err == nil {
		t.Fatal("expected error for empty fitness")
	}
	if _, err := ComputeStatistics([][]float64{{0.1}}, 1); err == nil {
		t.Fatal("expected error for confidence 1")
	}
	if _, err := ComputeStatistics([][]float64{{0.1}, {0.1, 0.2}}, 0.9); err == nil {
		t.Fatal("expected error for ragged rounds")
	}
}
