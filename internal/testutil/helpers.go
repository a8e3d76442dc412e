// Package testutil provides reusable test helpers and in-memory collaborators
// for subsampling tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	subsample "github.com/tphakala/subsample-feats"
)

// MustMatrix builds a matrix from rows, failing the test on ragged input.
func MustMatrix(t testing.TB, rows [][]float32) *subsample.Matrix {
	t.Helper()
	m, err := subsample.NewMatrixFromRows(rows)
	require.NoError(t, err)
	return m
}

// RampMatrix returns a rows x cols matrix whose frame i holds i+1 in every
// column, so each frame identifies its source index.
func RampMatrix(rows, cols int) *subsample.Matrix {
	m := subsample.NewMatrix(rows, cols)
	for i := range rows {
		row := m.Row(i)
		for j := range row {
			row[j] = float32(i + 1)
		}
	}
	return m
}

// PatternMatrix returns a rows x cols matrix with distinct values per cell.
func PatternMatrix(rows, cols int) *subsample.Matrix {
	m := subsample.NewMatrix(rows, cols)
	for i := range rows {
		row := m.Row(i)
		for j := range row {
			row[j] = float32(i)*1000 + float32(j) + 0.25
		}
	}
	return m
}

// AssertMatrixEqual verifies shape and bit-exact contents.
func AssertMatrixEqual(t *testing.T, expected, actual *subsample.Matrix, msgAndArgs ...any) bool {
	t.Helper()
	if !assert.NotNil(t, actual, msgAndArgs...) {
		return false
	}
	if expected.Equal(actual) {
		return true
	}
	if !assert.Equal(t, expected.NumRows(), actual.NumRows(), "row count") ||
		!assert.Equal(t, expected.NumCols(), actual.NumCols(), "column count") {
		return false
	}
	return assert.Equal(t, expected.Rows(), actual.Rows(), msgAndArgs...)
}

// AssertRowEqual verifies that row i of actual is a bit-exact copy of row j of
// source.
func AssertRowEqual(t *testing.T, source *subsample.Matrix, j int, actual *subsample.Matrix, i int) bool {
	t.Helper()
	return assert.Equal(t, source.Row(j), actual.Row(i),
		"output row %d should equal input row %d", i, j)
}

// Utterance is one entry of an in-memory feature stream.
type Utterance struct {
	Key   string
	Feats *subsample.Matrix
}

// MemorySource is a FeatureSource over a fixed slice of utterances.
type MemorySource struct {
	Utterances []Utterance

	// FailAfter makes iteration stop with ReadErr once that many utterances
	// were yielded. Negative disables it.
	FailAfter int
	ReadErr   error

	pos    int
	err    error
	served int
}

// NewMemorySource creates a source yielding utts in order.
func NewMemorySource(utts ...Utterance) *MemorySource {
	return &MemorySource{Utterances: utts, FailAfter: -1, pos: -1}
}

// Next advances to the next utterance.
func (s *MemorySource) Next() bool {
	if s.err != nil {
		return false
	}
	if s.FailAfter >= 0 && s.served >= s.FailAfter {
		s.err = s.ReadErr
		return false
	}
	if s.pos+1 >= len(s.Utterances) {
		s.pos = len(s.Utterances)
		return false
	}
	s.pos++
	s.served++
	return true
}

// Key returns the current key.
func (s *MemorySource) Key() string { return s.Utterances[s.pos].Key }

// Value returns the current matrix.
func (s *MemorySource) Value() *subsample.Matrix { return s.Utterances[s.pos].Feats }

// Err returns the error that stopped iteration, if any.
func (s *MemorySource) Err() error { return s.err }

// MemoryLookup is a ParamLookup backed by a map. Every lookup is recorded.
type MemoryLookup struct {
	Values  map[string]int32
	Queried []string
}

// Value returns the control value for key.
func (l *MemoryLookup) Value(key string) (int32, error) {
	l.Queried = append(l.Queried, key)
	n, ok := l.Values[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", subsample.ErrKeyNotFound, key)
	}
	return n, nil
}

// MemorySink records every write in order.
type MemorySink struct {
	Keys     []string
	Matrices []*subsample.Matrix

	// WriteErr, when set, is returned by every Write.
	WriteErr error
}

// Write records key and m.
func (s *MemorySink) Write(key string, m *subsample.Matrix) error {
	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.Keys = append(s.Keys, key)
	s.Matrices = append(s.Matrices, m)
	return nil
}

// Get returns the matrix written under key, or nil.
func (s *MemorySink) Get(key string) *subsample.Matrix {
	for i, k := range s.Keys {
		if k == key {
			return s.Matrices[i]
		}
	}
	return nil
}
