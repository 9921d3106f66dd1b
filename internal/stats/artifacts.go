package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"nklandscape/internal/model"
)

const (
	runIndexFile      = "run_index.json"
	parametersFile    = "parameters.json"
	statisticsFile    = "statistics.json"
	fitnessFile       = "fitness.json"
	matrixFile        = "matrix.json"
	roundsFile        = "rounds.json"
	fitnessSeriesFile = "fitness_series.csv"
	FitnessPlotFile   = "fitness.png"
)

type RunArtifacts struct {
	RunID      string
	Parameters model.RunParameters
	Matrix     [][]int
	Statistics model.Statistics
	Fitness    [][]float64
	Rounds     []model.RoundSummary
}

type RunIndexEntry struct {
	RunID        string  `json:"run_id"`
	Matrix       string  `json:"matrix"`
	N            int     `json:"n"`
	K            int     `json:"k"`
	Time         int     `json:"time"`
	Repeat       int     `json:"repeat"`
	Seed         int64   `json:"seed"`
	ErrorMean    float64 `json:"error_mean"`
	ErrorStd     float64 `json:"error_std"`
	FinalMean    float64 `json:"final_mean_fitness"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

// RoundLabel is the key used for round i in fitness.json.
func RoundLabel(i int) string {
	return fmt.Sprintf("Round %d", i)
}

// WriteRunArtifacts writes the run's parameters, statistics, per-round fitness
// trajectories, matrix and round summaries under baseDir/<run id>.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, parametersFile), artifacts.Parameters); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, statisticsFile), artifacts.Statistics); err != nil {
		return "", err
	}
	rounds := make(map[string][]float64, len(artifacts.Fitness))
	for i, trajectory := range artifacts.Fitness {
		rounds[RoundLabel(i)] = trajectory
	}
	if err := writeJSON(filepath.Join(runDir, fitnessFile), rounds); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, matrixFile), artifacts.Matrix); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, roundsFile), artifacts.Rounds); err != nil {
		return "", err
	}
	if err := WriteFitnessSeries(runDir, artifacts.Statistics); err != nil {
		return "", err
	}
	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies a run directory's artifacts to outDir/<run id>.
// The plot is optional.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	files := []string{parametersFile, statisticsFile, fitnessFile, matrixFile, roundsFile, fitnessSeriesFile}
	for _, file := range files {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	plotPath := filepath.Join(src, FitnessPlotFile)
	if _, err := os.Stat(plotPath); err == nil {
		if err := copyFile(plotPath, filepath.Join(dst, FitnessPlotFile)); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	return dst, nil
}

func ReadParameters(baseDir, runID string) (model.RunParameters, bool, error) {
	var params model.RunParameters
	ok, err := readJSON(filepath.Join(baseDir, runID, parametersFile), &params)
	return params, ok, err
}

func ReadStatistics(baseDir, runID string) (model.Statistics, bool, error) {
	var statistics model.Statistics
	ok, err := readJSON(filepath.Join(baseDir, runID, statisticsFile), &statistics)
	return statistics, ok, err
}

func ReadRounds(baseDir, runID string) ([]model.RoundSummary, bool, error) {
	var rounds []model.RoundSummary
	ok, err := readJSON(filepath.Join(baseDir, runID, roundsFile), &rounds)
	return rounds, ok, err
}

// ReadFitness returns the per-round trajectories ordered by round number.
func ReadFitness(baseDir, runID string) ([][]float64, bool, error) {
	var rounds map[string][]float64
	ok, err := readJSON(filepath.Join(baseDir, runID, fitnessFile), &rounds)
	if err != nil || !ok {
		return nil, ok, err
	}
	out := make([][]float64, len(rounds))
	for label, trajectory := range rounds {
		idx, err := strconv.Atoi(strings.TrimPrefix(label, "Round "))
		if err != nil || idx < 0 || idx >= len(out) {
			return nil, false, fmt.Errorf("unexpected round label %q", label)
		}
		out[idx] = trajectory
	}
	return out, true, nil
}

// WriteFitnessSeries writes the statistics as CSV rows of
// time, mean, lower_conf, upper_conf.
func WriteFitnessSeries(runDir string, statistics model.Statistics) error {
	path := filepath.Join(runDir, fitnessSeriesFile)
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"time", "mean", "lower_conf", "upper_conf"}); err != nil {
		return err
	}
	for i, mean := range statistics.Mean {
		if err := writer.Write([]string{
			strconv.Itoa(i),
			strconv.FormatFloat(mean, 'f', -1, 64),
			strconv.FormatFloat(statistics.LowerConf[i], 'f', -1, 64),
			strconv.FormatFloat(statistics.UpperConf[i], 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadFitnessSeries parses fitness_series.csv back into statistics.
func ReadFitnessSeries(baseDir, runID string) (model.Statistics, bool, error) {
	path := filepath.Join(baseDir, runID, fitnessSeriesFile)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Statistics{}, false, nil
		}
		return model.Statistics{}, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return model.Statistics{}, true, nil
		}
		return model.Statistics{}, false, err
	}
	if len(header) < 4 {
		return model.Statistics{}, false, fmt.Errorf("fitness series header must have 4 columns")
	}

	var out model.Statistics
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.Statistics{}, false, err
		}
		if len(record) < 4 {
			return model.Statistics{}, false, fmt.Errorf("fitness series row must have 4 columns")
		}
		values := make([]float64, 3)
		for i := range values {
			values[i], err = strconv.ParseFloat(record[i+1], 64)
			if err != nil {
				return model.Statistics{}, false, err
			}
		}
		out.Mean = append(out.Mean, values[0])
		out.LowerConf = append(out.LowerConf, values[1])
		out.UpperConf = append(out.UpperConf, values[2])
	}
	return out, true, nil
}

func readJSON(path string, value any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, value); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
