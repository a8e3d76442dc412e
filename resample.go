package subsample

import (
	"fmt"
	"math"
)

// Mode identifies which transform a control value selected.
type Mode int

const (
	// ModeDecimate keeps every n'th frame starting at the offset (n > 0).
	ModeDecimate Mode = iota

	// ModeRepeat replicates every frame -n times (n <= 0).
	ModeRepeat
)

// String returns the mode name used in log fields.
func (m Mode) String() string {
	switch m {
	case ModeDecimate:
		return "decimate"
	case ModeRepeat:
		return "repeat"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ModeFor returns the mode selected by control value n.
func ModeFor(n int32) Mode {
	if n >= minDecimationStep {
		return ModeDecimate
	}
	return ModeRepeat
}

// Outcome is the result of resampling one utterance: either a produced
// matrix or a skip with a reason.
type Outcome struct {
	// Mode is the transform that was applied.
	Mode Mode

	// Output is the new matrix. Nil when Skipped is set.
	Output *Matrix

	// Skipped is set when no output should be written for the utterance.
	Skipped bool

	// Reason describes why the utterance was skipped.
	Reason string
}

// Produced returns an outcome carrying m.
func Produced(mode Mode, m *Matrix) Outcome {
	return Outcome{Mode: mode, Output: m}
}

// Skipped returns an outcome with no output.
func Skipped(mode Mode, reason string) Outcome {
	return Outcome{Mode: mode, Skipped: true, Reason: reason}
}

// FrameResampler subsamples or repeats the frames of a matrix according to a
// per-utterance control value.
type FrameResampler struct {
	offset int
}

// NewFrameResampler creates a resampler whose decimation starts at offset.
func NewFrameResampler(offset int) (*FrameResampler, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNegativeOffset, offset)
	}
	return &FrameResampler{offset: offset}, nil
}

// Resample transforms m according to control value n. The input is never
// modified; produced outputs are freshly allocated.
//
// For n > 0 rows offset, offset+n, offset+2n, ... are kept; if none exist
// the outcome is skipped. For n <= 0 each row is repeated -n times, and
// n == 0 yields a produced zero-row matrix.
func (r *FrameResampler) Resample(m *Matrix, n int32) (Outcome, error) {
	if ModeFor(n) == ModeDecimate {
		return r.decimate(m, int(n)), nil
	}
	return repeat(m, -int(n))
}

// DecimatedRows returns how many rows decimation with step n keeps from a
// matrix of numRows rows.
func (r *FrameResampler) DecimatedRows(numRows, n int) int {
	if n < minDecimationStep || r.offset >= numRows {
		return 0
	}
	return (numRows - r.offset + n - 1) / n
}

func (r *FrameResampler) decimate(m *Matrix, n int) Outcome {
	k := r.DecimatedRows(m.NumRows(), n)
	if k == 0 {
		return Skipped(ModeDecimate, noRowsReason)
	}

	out := NewMatrix(k, m.NumCols())
	for i := range k {
		copy(out.Row(i), m.Row(r.offset+i*n))
	}
	return Produced(ModeDecimate, out)
}

func repeat(m *Matrix, times int) (Outcome, error) {
	rows := m.NumRows()
	cells := max(m.NumCols(), 1)
	if times > 0 && rows > math.MaxInt/times/cells {
		return Outcome{}, fmt.Errorf("%w: %d rows repeated %d times", ErrOutputTooLarge, rows, times)
	}

	out := NewMatrix(rows*times, m.NumCols())
	for j := range out.NumRows() {
		copy(out.Row(j), m.Row(j/times))
	}
	return Produced(ModeRepeat, out), nil
}
