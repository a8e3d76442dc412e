package table

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	subsample "github.com/tphakala/subsample-feats"
	"github.com/tphakala/subsample-feats/internal/testutil"
)

func newReader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestBinaryMatrixLayout(t *testing.T) {
	m := testutil.MustMatrix(t, [][]float32{{1.5, -2}})

	var buf bytes.Buffer
	require.NoError(t, writeMatrix(&buf, m, true))

	want := []byte("\x00BFM \x04\x01\x00\x00\x00\x04\x02\x00\x00\x00")
	want = binary.LittleEndian.AppendUint32(want, math.Float32bits(1.5))
	want = binary.LittleEndian.AppendUint32(want, math.Float32bits(-2))
	assert.Equal(t, want, buf.Bytes())
}

func TestMatrixRoundTrip(t *testing.T) {
	shapes := [][2]int{{0, 0}, {0, 3}, {1, 1}, {5, 2}, {3, 0}, {7, 13}}
	for _, binaryObj := range []bool{true, false} {
		for _, shape := range shapes {
			m := testutil.PatternMatrix(shape[0], shape[1])

			var buf bytes.Buffer
			require.NoError(t, writeMatrix(&buf, m, binaryObj))
			got, err := readMatrix(bufio.NewReader(&buf))
			require.NoError(t, err, "binary=%v shape=%v", binaryObj, shape)

			if !binaryObj && (shape[0] == 0 || shape[1] == 0) {
				// Text form cannot carry the width of an empty matrix.
				assert.Equal(t, 0, got.NumRows()*got.NumCols())
				continue
			}
			testutil.AssertMatrixEqual(t, m, got, "binary=%v shape=%v", binaryObj, shape)
		}
	}
}

func TestReadTextMatrix(t *testing.T) {
	m, err := readMatrix(newReader(" [\n  1 1 \n  2.5 -3e-2 ]\n"))
	require.NoError(t, err)
	want := testutil.MustMatrix(t, [][]float32{{1, 1}, {2.5, -0.03}})
	testutil.AssertMatrixEqual(t, want, m)
}

func TestReadTextMatrix_Errors(t *testing.T) {
	for _, in := range []string{
		" 1 2 ]",
		" [ 1 2 \n 3 ]",
		" [ 1 x ]",
		" [ 1 2",
	} {
		_, err := readMatrix(newReader(in))
		assert.ErrorIs(t, err, ErrMalformedArchive, "%q", in)
	}
}

func TestReadBinaryMatrix_DoublePrecision(t *testing.T) {
	raw := []byte("\x00BDM \x04\x01\x00\x00\x00\x04\x02\x00\x00\x00")
	raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(0.5))
	raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(-4))

	m, err := readMatrix(bufio.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -4}, m.Row(0))
}

func TestReadBinaryMatrix_Compressed(t *testing.T) {
	_, err := readMatrix(newReader("\x00BCM2 \x00\x00"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadBinaryMatrix_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMatrix(&buf, testutil.RampMatrix(4, 4), true))
	raw := buf.Bytes()[:buf.Len()-3]

	_, err := readMatrix(bufio.NewReader(bytes.NewReader(raw)))
	assert.ErrorIs(t, err, ErrMalformedArchive)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func binaryMatrixHeader(rows, cols int32) []byte {
	b := []byte("\x00BFM ")
	b = appendBinaryInt32(b, rows)
	return appendBinaryInt32(b, cols)
}

func TestReadBinaryMatrix_OversizedShape(t *testing.T) {
	raw := append([]byte("u1 "), binaryMatrixHeader(math.MaxInt32, math.MaxInt32)...)
	r := bufio.NewReader(bytes.NewReader(raw))

	key, err := readKey(r)
	require.NoError(t, err)
	assert.Equal(t, "u1", key)

	_, err = readMatrix(r)
	assert.ErrorIs(t, err, ErrMalformedArchive)
}

func TestReadBinaryMatrix_LargeHeaderTruncated(t *testing.T) {
	raw := binaryMatrixHeader(100_000, 100_000)
	raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(1))

	_, err := readMatrix(bufio.NewReader(bytes.NewReader(raw)))
	assert.ErrorIs(t, err, ErrMalformedArchive)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestInt32RoundTrip(t *testing.T) {
	for _, binaryObj := range []bool{true, false} {
		for _, v := range []int32{0, 3, -2, math.MaxInt32, math.MinInt32} {
			var buf bytes.Buffer
			require.NoError(t, writeInt32(&buf, v, binaryObj))
			got, err := readInt32(bufio.NewReader(&buf))
			require.NoError(t, err)
			assert.Equal(t, v, got)
		}
	}
}

func TestReadInt32_BadSizeByte(t *testing.T) {
	_, err := readInt32(newReader("\x00B\x08\x01\x00\x00\x00"))
	assert.ErrorIs(t, err, ErrMalformedArchive)
}

func TestReadKey(t *testing.T) {
	r := newReader("\n  utt1 rest")
	key, err := readKey(r)
	require.NoError(t, err)
	assert.Equal(t, "utt1", key)

	rest, _ := r.ReadString(0)
	assert.Equal(t, "rest", rest)

	_, err = readKey(newReader("   \n"))
	assert.ErrorIs(t, err, io.EOF)

	_, err = readKey(newReader("utt1\n"))
	assert.ErrorIs(t, err, ErrMalformedArchive)
}

func TestWriteTextMatrix_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMatrix(&buf, testutil.MustMatrix(t, [][]float32{{1, 2}, {3, 4}}), false))
	assert.Equal(t, " [\n  1 2 \n  3 4 ]\n", buf.String())

	buf.Reset()
	require.NoError(t, writeMatrix(&buf, subsample.NewMatrix(2, 0), false))
	assert.Equal(t, " [ ]\n", buf.String())
}
