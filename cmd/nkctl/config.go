package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"nklandscape/internal/model"
	nkapi "nklandscape/pkg/nklandscape"
)

// runFileConfig is the on-disk form of a run. Keys follow the run flags with
// underscores.
type runFileConfig struct {
	model.RunParameters `yaml:",inline"`
	RunID               string `json:"run_id" yaml:"run_id" toml:"run_id"`
	Plot                bool   `json:"plot" yaml:"plot" toml:"plot"`
}

func (c runFileConfig) request() nkapi.RunRequest {
	return nkapi.RunRequest{
		RunID:      c.RunID,
		N:          c.N,
		K:          c.K,
		Matrix:     c.Matrix,
		Time:       c.Time,
		Repeat:     c.Repeat,
		Mean:       c.Mean,
		Std:        c.Std,
		Confidence: c.Confidence,
		Alleles:    c.Alleles,
		Seed:       c.Seed,
		Workers:    c.Workers,
		Normalized: c.Normalized,
		Plot:       c.Plot,
	}
}

// loadRunConfig decodes path over defaults; keys absent from the file keep
// their default values.
func loadRunConfig(path string, defaults runFileConfig) (runFileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return runFileConfig{}, fmt.Errorf("load config: %w", err)
	}

	cfg := defaults
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&cfg)
	case ".toml":
		var meta toml.MetaData
		meta, err = toml.Decode(string(data), &cfg)
		if err == nil {
			if undecoded := meta.Undecoded(); len(undecoded) > 0 {
				err = fmt.Errorf("unknown keys %v", undecoded)
			}
		}
	default:
		return runFileConfig{}, fmt.Errorf("load config: unsupported config format %q", ext)
	}
	if err != nil {
		return runFileConfig{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func overrideFromFlags(cfg *runFileConfig, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			cfg.RunID = v.(string)
		case "n":
			cfg.N = v.(int)
		case "k":
			cfg.K = v.(int)
		case "matrix":
			cfg.Matrix = v.(string)
		case "time":
			cfg.Time = v.(int)
		case "repeat":
			cfg.Repeat = v.(int)
		case "mean":
			cfg.Mean = v.(float64)
		case "std":
			cfg.Std = v.(float64)
		case "confidence":
			cfg.Confidence = v.(float64)
		case "alleles":
			cfg.Alleles = v.(int)
		case "seed":
			cfg.Seed = v.(int64)
		case "workers":
			cfg.Workers = v.(int)
		case "normalized-perception":
			cfg.Normalized = v.(bool)
		case "plot":
			cfg.Plot = v.(bool)
		default:
			return fmt.Errorf("unsupported override flag: %s", name)
		}
	}
	return nil
}
