package subsample

import (
	"fmt"
)

// Matrix is a dense row-major matrix of float32 feature frames.
// Rows are time steps and columns are feature dimensions. Zero rows and
// zero columns are both valid shapes.
type Matrix struct {
	rows int
	cols int
	data []float32
}

// NewMatrix allocates a zeroed rows x cols matrix.
// Negative dimensions are clamped to zero.
func NewMatrix(rows, cols int) *Matrix {
	rows = max(rows, 0)
	cols = max(cols, 0)
	return &Matrix{
		rows: rows,
		cols: cols,
		data: make([]float32, rows*cols),
	}
}

// NewMatrixFromData wraps data as a rows x cols matrix without copying.
// The slice length must be exactly rows*cols.
func NewMatrixFromData(rows, cols int, data []float32) (*Matrix, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: negative shape %dx%d", ErrDimensionMismatch, rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d values for a %dx%d matrix",
			ErrDimensionMismatch, len(data), rows, cols)
	}
	return &Matrix{rows: rows, cols: cols, data: data}, nil
}

// NewMatrixFromRows copies rows into a new matrix. All rows must have the
// same length.
func NewMatrixFromRows(rows [][]float32) (*Matrix, error) {
	if len(rows) == 0 {
		return NewMatrix(0, 0), nil
	}

	cols := len(rows[0])
	m := NewMatrix(len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d",
				ErrDimensionMismatch, i, len(row), cols)
		}
		copy(m.Row(i), row)
	}
	return m, nil
}

// NumRows returns the number of frames.
func (m *Matrix) NumRows() int { return m.rows }

// NumCols returns the feature dimension.
func (m *Matrix) NumCols() int { return m.cols }

// Row returns frame i as a slice sharing the matrix storage.
func (m *Matrix) Row(i int) []float32 {
	start := i * m.cols
	return m.data[start : start+m.cols : start+m.cols]
}

// At returns the value at frame i, dimension j.
func (m *Matrix) At(i, j int) float32 {
	return m.data[i*m.cols+j]
}

// Data returns the row-major backing slice.
func (m *Matrix) Data() []float32 { return m.data }

// Rows returns a copy of the matrix as a slice of frames.
func (m *Matrix) Rows() [][]float32 {
	out := make([][]float32, m.rows)
	for i := range m.rows {
		out[i] = append([]float32(nil), m.Row(i)...)
	}
	return out
}

// Equal reports whether both matrices have the same shape and bit-identical
// values. Two nil matrices are equal.
func (m *Matrix) Equal(other *Matrix) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.rows != other.rows || m.cols != other.cols {
		return false
	}
	for i, v := range m.data {
		if v != other.data[i] {
			return false
		}
	}
	return true
}
