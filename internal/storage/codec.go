package storage

import (
	"encoding/json"
	"errors"

	"nklandscape/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// CurrentVersion is the record version written by this build.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRun(r model.Run) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.Run, error) {
	var run model.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return model.Run{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.Run{}, err
	}
	return run, nil
}

func EncodeFitness(f model.FitnessTrajectories) ([]byte, error) {
	return json.Marshal(f)
}

func DecodeFitness(data []byte) (model.FitnessTrajectories, error) {
	var trajectories model.FitnessTrajectories
	if err := json.Unmarshal(data, &trajectories); err != nil {
		return model.FitnessTrajectories{}, err
	}
	if err := checkVersion(trajectories.VersionedRecord); err != nil {
		return model.FitnessTrajectories{}, err
	}
	return trajectories, nil
}

func EncodeStatistics(s model.StatisticsRecord) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeStatistics(data []byte) (model.StatisticsRecord, error) {
	var record model.StatisticsRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.StatisticsRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.StatisticsRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
