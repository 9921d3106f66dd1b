package scape

import (
	"fmt"
	"math/rand"

	"nklandscape/internal/genotype"
)

type generatorOptions struct {
	maxRepairAttempts int
}

type GeneratorOption func(*generatorOptions)

// WithMaxRepairAttempts bounds the number of consecutive column-pair draws
// that may fail to find a swap row before generation gives up.
func WithMaxRepairAttempts(attempts int) GeneratorOption {
	return func(o *generatorOptions) {
		o.maxRepairAttempts = attempts
	}
}

// GenerateMatrix builds a random interdependency matrix for n genes where
// every gene depends on itself and k others, and every gene influences
// exactly k+1 genes.
//
// Rows are filled first, which fixes every row sum at k+1. Column sums are
// then repaired by moving a one from an over-full column to an under-full
// column within a single row, which leaves that row's sum unchanged.
func GenerateMatrix(rng *rand.Rand, n, k int, opts ...GeneratorOption) (*Matrix, error) {
	if n <= 0 || k < 0 || n <= k {
		return nil, fmt.Errorf("%w: need n > k >= 0, got n=%d k=%d", ErrInvalidParameters, n, k)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is required", ErrInvalidParameters)
	}
	cfg := generatorOptions{maxRepairAttempts: 1000 * n}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxRepairAttempts <= 0 {
		return nil, fmt.Errorf("%w: max repair attempts must be positive", ErrInvalidParameters)
	}

	rows := make([][]int, n)
	colSums := make([]int, n)
	for i := range rows {
		rows[i] = make([]int, n)
		rows[i][i] = 1
		colSums[i]++

		others := make([]int, 0, n-1)
		for j := 0; j < n; j++ {
			if j != i {
				others = append(others, j)
			}
		}
		picked, err := genotype.SampleWithoutReplacement(rng, others, k)
		if err != nil {
			return nil, err
		}
		for _, j := range picked {
			rows[i][j] = 1
			colSums[j]++
		}
	}

	if err := repairColumns(rng, rows, colSums, k+1, cfg.maxRepairAttempts); err != nil {
		return nil, fmt.Errorf("%w (n=%d k=%d)", err, n, k)
	}
	return NewMatrix(rows)
}

// repairColumns swaps ones between columns until every entry of colSums equals
// target. It gives up after maxAttempts consecutive picks with no usable row.
func repairColumns(rng *rand.Rand, rows [][]int, colSums []int, target, maxAttempts int) error {
	failures := 0
	for {
		var deficient, excess []int
		for j, sum := range colSums {
			switch {
			case sum < target:
				deficient = append(deficient, j)
			case sum > target:
				excess = append(excess, j)
			}
		}
		if len(deficient) == 0 && len(excess) == 0 {
			return nil
		}

		excessCol, err := genotype.RandomElement(rng, excess)
		if err != nil {
			return err
		}
		deficientCol, err := genotype.RandomElement(rng, deficient)
		if err != nil {
			return err
		}

		row, ok := findSwapRow(rng, rows, deficientCol, excessCol)
		if !ok {
			failures++
			if failures >= maxAttempts {
				return fmt.Errorf("%w after %d attempts", ErrRepairExhausted, failures)
			}
			continue
		}
		failures = 0
		rows[row][deficientCol] = 1
		rows[row][excessCol] = 0
		colSums[deficientCol]++
		colSums[excessCol]--
	}
}

// findSwapRow scans rows in random order for one that can move a one from
// excessCol to deficientCol without touching the diagonal.
func findSwapRow(rng *rand.Rand, rows [][]int, deficientCol, excessCol int) (int, bool) {
	for _, r := range rng.Perm(len(rows)) {
		if r == deficientCol || r == excessCol {
			continue
		}
		if rows[r][deficientCol] == 0 && rows[r][excessCol] == 1 {
			return r, true
		}
	}
	return 0, false
}
