package storage

import (
	"errors"
	"reflect"
	"testing"

	"nklandscape/internal/model"
)

func TestRunCodecRoundTrip(t *testing.T) {
	input := model.Run{
		VersionedRecord: CurrentVersion(),
		ID:              "run-1",
		Parameters:      model.RunParameters{N: 4, K: 1, Matrix: "random", Time: 10, Repeat: 2, Confidence: 0.9, Seed: 7},
		Matrix:          [][]int{{1, 1, 0, 0}, {0, 1, 1, 0}, {0, 0, 1, 1}, {1, 0, 0, 1}},
		CreatedAtUTC:    "2026-01-01T00:00:00Z",
	}

	encoded, err := EncodeRun(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeRun(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded, input) {
		t.Fatalf("roundtrip mismatch\nactual=%+v\nexpected=%+v", decoded, input)
	}
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	payload := []byte(`{"schema_version":2,"codec_version":1,"id":"run-1"}`)
	if _, err := DecodeRun(payload); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch for run, got %v", err)
	}
	if _, err := DecodeFitness(payload); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch for fitness, got %v", err)
	}
	if _, err := DecodeStatistics(payload); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch for statistics, got %v", err)
	}
}

func TestStatisticsCodecRoundTrip(t *testing.T) {
	input := model.StatisticsRecord{
		VersionedRecord: CurrentVersion(),
		RunID:           "run-1",
		Confidence:      0.95,
		Statistics: model.Statistics{
			Mean:      []float64{0.5, 0.6},
			UpperConf: []float64{0.55, 0.65},
			LowerConf: []float64{0.45, 0.55},
		},
	}
	encoded, err := EncodeStatistics(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeStatistics(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded, input) {
		t.Fatalf("roundtrip mismatch\nactual=%+v\nexpected=%+v", decoded, input)
	}
}
