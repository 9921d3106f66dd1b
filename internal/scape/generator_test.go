package scape

import (
	"errors"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func assertRegular(t *testing.T, m *Matrix, n, k int) {
	t.Helper()
	dense := m.Dense()
	r, c := dense.Dims()
	if r != n || c != n {
		t.Fatalf("expected %dx%d matrix, got %dx%d", n, n, r, c)
	}
	for i := 0; i < n; i++ {
		if dense.At(i, i) != 1 {
			t.Fatalf("diagonal entry %d is %v", i, dense.At(i, i))
		}
		if got := floats.Sum(mat.Row(nil, i, dense)); got != float64(k+1) {
			t.Fatalf("row %d sums to %v, want %d", i, got, k+1)
		}
		if got := floats.Sum(mat.Col(nil, i, dense)); got != float64(k+1) {
			t.Fatalf("column %d sums to %v, want %d", i, got, k+1)
		}
	}
}

func TestGenerateMatrixProducesRegularMatrices(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(40)
		k := rng.Intn(n)
		m, err := GenerateMatrix(rng, n, k)
		if err != nil {
			t.Fatalf("generate n=%d k=%d: %v", n, k, err)
		}
		assertRegular(t, m, n, k)
		if m.N() != n || m.K() != k {
			t.Fatalf("unexpected dimensions n=%d k=%d for request n=%d k=%d", m.N(), m.K(), n, k)
		}
	}
}

func TestGenerateMatrixLargeDimensions(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	m, err := GenerateMatrix(rng, 99, 37)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	assertRegular(t, m, 99, 37)
}

func TestGenerateMatrixFourGenesOneInterdependency(t *testing.T) {
	m, err := GenerateMatrix(rand.New(rand.NewSource(1)), 4, 1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	assertRegular(t, m, 4, 1)
}

func TestGenerateMatrixDeterministicWithSeed(t *testing.T) {
	a, err := GenerateMatrix(rand.New(rand.NewSource(9)), 12, 4)
	if err != nil {
		t.Fatalf("generate a: %v", err)
	}
	b, err := GenerateMatrix(rand.New(rand.NewSource(9)), 12, 4)
	if err != nil {
		t.Fatalf("generate b: %v", err)
	}
	if a.String() != b.String() {
		t.Fatalf("expected equal matrices for equal seeds\n%s\n%s", a, b)
	}
}

func TestGenerateMatrixRejectsInvalidParameters(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for n := 0; n < 8; n++ {
		for k := n; k < n+3; k++ {
			if _, err := GenerateMatrix(rng, n, k); !errors.Is(err, ErrInvalidParameters) {
				t.Fatalf("n=%d k=%d: expected ErrInvalidParameters, got %v", n, k, err)
			}
		}
	}
	if _, err := GenerateMatrix(rng, 4, -1); !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters for negative k, got %v", err)
	}
	if _, err := GenerateMatrix(nil, 4, 1); !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters for nil rng, got %v", err)
	}
	if _, err := GenerateMatrix(rng, 4, 1, WithMaxRepairAttempts(0)); !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters for zero attempts, got %v", err)
	}
}

func TestFindSwapRowSkipsDiagonalRows(t *testing.T) {
	rows := [][]int{
		{1, 1, 0},
		{1, 1, 0},
		{0, 1, 1},
	}
	rng := rand.New(rand.NewSource(2))
	// Column 1 has an excess and column 2 a deficit; row 0 is the only
	// candidate because rows 1 and 2 sit on the selected columns.
	for i := 0; i < 20; i++ {
		row, ok := findSwapRow(rng, rows, 2, 1)
		if !ok || row != 0 {
			t.Fatalf("expected row 0, got row=%d ok=%v", row, ok)
		}
	}
	if _, ok := findSwapRow(rng, rows, 0, 2); ok {
		t.Fatal("expected no swap row when the only ones sit on excluded rows")
	}
}

func TestRepairColumnsBalancesSums(t *testing.T) {
	// Every row sums to 2; column 1 holds one too many and column 0 one too
	// few, and row 2 is the only row that can move it.
	rows := [][]int{
		{1, 1, 0},
		{0, 1, 1},
		{0, 1, 1},
	}
	colSums := []int{1, 3, 2}

	if err := repairColumns(rand.New(rand.NewSource(4)), rows, colSums, 2, 10); err != nil {
		t.Fatalf("repairColumns: %v", err)
	}
	for j, sum := range colSums {
		if sum != 2 {
			t.Fatalf("column %d sums to %d after repair, want 2", j, sum)
		}
	}
	if _, err := NewMatrix(rows); err != nil {
		t.Fatalf("repaired rows are not a valid matrix: %v", err)
	}
}

func TestRepairColumnsReportsExhaustion(t *testing.T) {
	// With two genes every candidate row sits on one of the selected
	// columns, so no swap is ever possible.
	rows := [][]int{
		{0, 1},
		{0, 1},
	}
	colSums := []int{0, 2}
	for _, attempts := range []int{1, 3} {
		err := repairColumns(rand.New(rand.NewSource(1)), rows, colSums, 1, attempts)
		if !errors.Is(err, ErrRepairExhausted) {
			t.Fatalf("attempts=%d: expected ErrRepairExhausted, got %v", attempts, err)
		}
	}
	if colSums[0] != 0 || colSums[1] != 2 {
		t.Fatalf("column sums changed on failure: %v", colSums)
	}
}
