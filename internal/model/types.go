package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunParameters are the inputs of one simulation run. JSON names follow the
// command line flags.
type RunParameters struct {
	N          int     `json:"n" yaml:"n" toml:"n"`
	K          int     `json:"k" yaml:"k" toml:"k"`
	Matrix     string  `json:"matrix" yaml:"matrix" toml:"matrix"`
	Time       int     `json:"time" yaml:"time" toml:"time"`
	Repeat     int     `json:"repeat" yaml:"repeat" toml:"repeat"`
	Mean       float64 `json:"mean" yaml:"mean" toml:"mean"`
	Std        float64 `json:"std" yaml:"std" toml:"std"`
	Confidence float64 `json:"confidence" yaml:"confidence" toml:"confidence"`
	Alleles    int     `json:"alleles" yaml:"alleles" toml:"alleles"`
	Seed       int64   `json:"seed" yaml:"seed" toml:"seed"`
	Workers    int     `json:"workers" yaml:"workers" toml:"workers"`
	Normalized bool    `json:"normalized_perception" yaml:"normalized_perception" toml:"normalized_perception"`
}

type Run struct {
	VersionedRecord
	ID           string        `json:"id"`
	Parameters   RunParameters `json:"parameters"`
	Matrix       [][]int       `json:"matrix"`
	CreatedAtUTC string        `json:"created_at_utc"`
}

// RoundSummary describes the landscape and outcome of one simulation round.
type RoundSummary struct {
	Round             int     `json:"round"`
	GlobalMaxPosition string  `json:"global_max_position"`
	GlobalMaxFitness  float64 `json:"global_max_fitness"`
	InitialFitness    float64 `json:"initial_fitness"`
	FinalFitness      float64 `json:"final_fitness"`
	Moves             int     `json:"moves"`
	ReachedGlobalMax  bool    `json:"reached_global_max"`
}

// FitnessTrajectories holds normalized fitness per round and time step.
type FitnessTrajectories struct {
	VersionedRecord
	RunID   string         `json:"run_id"`
	Rounds  [][]float64    `json:"rounds"`
	Summary []RoundSummary `json:"summary,omitempty"`
}

// Statistics holds per time step mean fitness and confidence bounds.
type Statistics struct {
	Mean      []float64 `json:"mean"`
	UpperConf []float64 `json:"upper_conf"`
	LowerConf []float64 `json:"lower_conf"`
}

type StatisticsRecord struct {
	VersionedRecord
	RunID      string     `json:"run_id"`
	Confidence float64    `json:"confidence"`
	Statistics Statistics `json:"statistics"`
}
