package scape

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a validated interdependency matrix. Entry (i, j) is 1 when gene j
// is one of the influences on gene i. Values are immutable once constructed.
type Matrix struct {
	dense *mat.Dense
	dims  Dimensions
}

// NewMatrix builds a matrix from rows of 0/1 entries and validates it.
func NewMatrix(rows [][]int) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: matrix is empty", ErrInvalidInterdependency)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: not two-dimensional, row %d has %d entries, want %d", ErrInvalidInterdependency, i, len(row), cols)
		}
		for _, v := range row {
			data = append(data, float64(v))
		}
	}
	if cols == 0 {
		return nil, fmt.Errorf("%w: matrix is empty", ErrInvalidInterdependency)
	}
	return MatrixFrom(mat.NewDense(len(rows), cols, data))
}

// MatrixFrom copies and validates any gonum matrix.
func MatrixFrom(m mat.Matrix) (*Matrix, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: matrix is nil", ErrInvalidInterdependency)
	}
	if err := ValidateMatrix(m); err != nil {
		return nil, err
	}
	dense := mat.DenseCopyOf(m)
	return &Matrix{dense: dense, dims: DimensionsOf(dense)}, nil
}

// DimensionsOf derives N and K from a matrix that passed ValidateMatrix.
func DimensionsOf(m mat.Matrix) Dimensions {
	n, _ := m.Dims()
	return Dimensions{N: n, K: int(floats.Sum(mat.Row(nil, 0, m))) - 1}
}

// IsValid reports whether m is eligible as a landscape structure.
func IsValid(m mat.Matrix) bool {
	return ValidateMatrix(m) == nil
}

// ValidateMatrix checks that m is square, binary, has ones along the main
// diagonal, and that every row and column sums to the first row's sum.
func ValidateMatrix(m mat.Matrix) error {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return fmt.Errorf("%w: matrix is empty", ErrInvalidInterdependency)
	}
	if r != c {
		return fmt.Errorf("%w: not square (%dx%d)", ErrInvalidInterdependency, r, c)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); v != 0 && v != 1 {
				return fmt.Errorf("%w: entry (%d,%d) is %v, want 0 or 1", ErrInvalidInterdependency, i, j, v)
			}
		}
		if m.At(i, i) != 1 {
			return fmt.Errorf("%w: diagonal entry %d is not 1", ErrInvalidInterdependency, i)
		}
	}

	want := floats.Sum(mat.Row(nil, 0, m))
	for i := 0; i < r; i++ {
		if got := floats.Sum(mat.Row(nil, i, m)); got != want {
			return fmt.Errorf("%w: row %d sums to %v, want %v", ErrInvalidInterdependency, i, got, want)
		}
		if got := floats.Sum(mat.Col(nil, i, m)); got != want {
			return fmt.Errorf("%w: column %d sums to %v, want %v", ErrInvalidInterdependency, i, got, want)
		}
	}
	return nil
}

func (m *Matrix) N() int { return m.dims.N }

func (m *Matrix) K() int { return m.dims.K }

func (m *Matrix) Dimensions() Dimensions { return m.dims }

// At returns entry (i, j) as 0 or 1.
func (m *Matrix) At(i, j int) int {
	return int(m.dense.At(i, j))
}

// Dense returns a copy of the underlying gonum matrix.
func (m *Matrix) Dense() *mat.Dense {
	return mat.DenseCopyOf(m.dense)
}

// Rows returns the matrix as rows of 0/1 entries.
func (m *Matrix) Rows() [][]int {
	rows := make([][]int, m.dims.N)
	for i := range rows {
		rows[i] = make([]int, m.dims.N)
		for j := range rows[i] {
			rows[i][j] = m.At(i, j)
		}
	}
	return rows
}

func (m *Matrix) String() string {
	var b strings.Builder
	for i := 0; i < m.dims.N; i++ {
		for j := 0; j < m.dims.N; j++ {
			if j > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d", m.At(i, j))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
