package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"nklandscape/internal/model"
)

// SmallSampleRounds is the largest round count that uses the Student t
// distribution; larger samples use the normal approximation.
const SmallSampleRounds = 30

// ComputeStatistics returns, for every time step, the mean fitness across
// rounds and a two-sided confidence interval around it. fitness is indexed
// [round][time step].
func ComputeStatistics(fitness [][]float64, confidence float64) (model.Statistics, error) {
	if len(fitness) == 0 {
		return model.Statistics{}, fmt.Errorf("fitness must contain at least one round")
	}
	if confidence <= 0 || confidence >= 1 || math.IsNaN(confidence) {
		return model.Statistics{}, fmt.Errorf("confidence must be in (0,1), got %v", confidence)
	}
	steps := len(fitness[0])
	for i, round := range fitness {
		if len(round) != steps {
			return model.Statistics{}, fmt.Errorf("round %d has %d steps, want %d", i, len(round), steps)
		}
	}

	rounds := len(fitness)
	quantile := criticalValue(rounds, confidence)
	out := model.Statistics{
		Mean:      make([]float64, steps),
		UpperConf: make([]float64, steps),
		LowerConf: make([]float64, steps),
	}
	column := make([]float64, rounds)
	for t := 0; t < steps; t++ {
		for r := range fitness {
			column[r] = fitness[r][t]
		}
		mean := stat.Mean(column, nil)
		half := quantile * StandardError(column)
		out.Mean[t] = mean
		out.LowerConf[t] = mean - half
		out.UpperConf[t] = mean + half
	}
	return out, nil
}

// StandardError is the sample standard deviation over sqrt(n). A single
// observation has no spread and yields 0.
func StandardError(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil) / math.Sqrt(float64(len(values)))
}

func criticalValue(rounds int, confidence float64) float64 {
	p := (1 + confidence) / 2
	if rounds <= 1 {
		return 0
	}
	if rounds <= SmallSampleRounds {
		return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(rounds - 1)}.Quantile(p)
	}
	return distuv.UnitNormal.Quantile(p)
}
