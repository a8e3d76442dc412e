package table

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	subsample "github.com/tphakala/subsample-feats"
)

// readKey skips leading whitespace and reads an archive key followed by a
// single space. It returns io.EOF when the stream ends before a key starts.
func readKey(r *bufio.Reader) (string, error) {
	if err := skipSpace(r); err != nil {
		return "", err
	}

	var sb strings.Builder
	for {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", fmt.Errorf("%w: unexpected end of archive after key %q", ErrMalformedArchive, sb.String())
			}
			return "", err
		}
		switch b {
		case ' ', '\t':
			return sb.String(), nil
		case '\n', '\r':
			return "", fmt.Errorf("%w: no object after key %q", ErrMalformedArchive, sb.String())
		}
		sb.WriteByte(b)
	}
}

func skipSpace(r *bufio.Reader) error {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		if !isSpace(b) {
			return r.UnreadByte()
		}
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// readBinaryHeader consumes the "\0B" header if present and reports whether
// the object that follows is binary.
func readBinaryHeader(r *bufio.Reader) (bool, error) {
	head, err := r.Peek(len(binaryHeader))
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	if len(head) == len(binaryHeader) && head[0] == binaryMarker0 && head[1] == binaryMarker1 {
		_, err = r.Discard(len(binaryHeader))
		return true, err
	}
	return false, nil
}

// readMatrix decodes one matrix object, binary or text.
func readMatrix(r *bufio.Reader) (*subsample.Matrix, error) {
	binaryObj, err := readBinaryHeader(r)
	if err != nil {
		return nil, err
	}
	if binaryObj {
		return readBinaryMatrix(r)
	}
	return readTextMatrix(r)
}

func readToken(r *bufio.Reader) (string, error) {
	tok, err := r.ReadString(' ')
	if err != nil {
		return "", fmt.Errorf("%w: reading token: %w", ErrMalformedArchive, truncated(err))
	}
	return strings.TrimSuffix(tok, " "), nil
}

func readBinaryInt32(r io.Reader) (int32, error) {
	var buf [1 + 4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: reading int32: %w", ErrMalformedArchive, truncated(err))
	}
	if buf[0] != int32SizeByte {
		return 0, fmt.Errorf("%w: int32 size byte %d", ErrMalformedArchive, buf[0])
	}
	return int32(binary.LittleEndian.Uint32(buf[1:])), nil
}

func readBinaryMatrix(r *bufio.Reader) (*subsample.Matrix, error) {
	tok, err := readToken(r)
	if err != nil {
		return nil, err
	}

	var elemSize int
	switch {
	case tok == tokenFloatMat:
		elemSize = float32Size
	case tok == tokenDoubleMat:
		elemSize = float64Size
	case strings.HasPrefix(tok, tokenCompress):
		return nil, fmt.Errorf("%w: compressed matrix %q", ErrUnsupportedFormat, tok)
	default:
		return nil, fmt.Errorf("%w: matrix token %q", ErrUnsupportedFormat, tok)
	}

	rows, err := readBinaryInt32(r)
	if err != nil {
		return nil, err
	}
	cols, err := readBinaryInt32(r)
	if err != nil {
		return nil, err
	}
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: negative matrix shape %dx%d", ErrMalformedArchive, rows, cols)
	}

	if int64(rows)*int64(cols) > math.MaxInt/int64(elemSize) {
		return nil, fmt.Errorf("%w: matrix shape %dx%d too large", ErrMalformedArchive, rows, cols)
	}

	// Grow as rows arrive so a bogus header fails on EOF, not on allocation.
	total := int(rows) * int(cols)
	data := make([]float32, 0, min(total, maxPreallocValues))
	var raw [float64Size]byte
	for i := range int(rows) {
		for range int(cols) {
			if _, err := io.ReadFull(r, raw[:elemSize]); err != nil {
				return nil, fmt.Errorf("%w: matrix row %d: %w", ErrMalformedArchive, i, truncated(err))
			}
			if elemSize == float32Size {
				data = append(data, math.Float32frombits(binary.LittleEndian.Uint32(raw[:])))
			} else {
				data = append(data, float32(math.Float64frombits(binary.LittleEndian.Uint64(raw[:]))))
			}
		}
	}
	return subsample.NewMatrixFromData(int(rows), int(cols), data)
}

// readTextMatrix parses "[ v v ... \n v v ... ]". Each line inside the
// brackets is one row. An empty text matrix decodes as 0x0.
func readTextMatrix(r *bufio.Reader) (*subsample.Matrix, error) {
	if err := skipSpace(r); err != nil {
		return nil, fmt.Errorf("%w: expected '[': %w", ErrMalformedArchive, truncated(err))
	}
	if b, _ := r.ReadByte(); b != textMatrixOpen {
		return nil, fmt.Errorf("%w: expected '[', got %q", ErrMalformedArchive, b)
	}

	var (
		rows [][]float32
		row  []float32
		tok  strings.Builder
	)
	flushToken := func() error {
		if tok.Len() == 0 {
			return nil
		}
		v, err := strconv.ParseFloat(tok.String(), 32)
		if err != nil {
			return fmt.Errorf("%w: bad value %q", ErrMalformedArchive, tok.String())
		}
		row = append(row, float32(v))
		tok.Reset()
		return nil
	}
	flushRow := func() {
		if len(row) > 0 {
			rows = append(rows, row)
			row = nil
		}
	}

	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: unterminated text matrix: %w", ErrMalformedArchive, truncated(err))
		}
		switch {
		case b == textMatrixClose:
			if err := flushToken(); err != nil {
				return nil, err
			}
			flushRow()
			m, err := subsample.NewMatrixFromRows(rows)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrMalformedArchive, err)
			}
			return m, nil
		case b == '\n':
			if err := flushToken(); err != nil {
				return nil, err
			}
			flushRow()
		case isSpace(b):
			if err := flushToken(); err != nil {
				return nil, err
			}
		default:
			tok.WriteByte(b)
		}
	}
}

// readInt32 decodes one int32 object, binary or text.
func readInt32(r *bufio.Reader) (int32, error) {
	binaryObj, err := readBinaryHeader(r)
	if err != nil {
		return 0, err
	}
	if binaryObj {
		return readBinaryInt32(r)
	}

	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	field := strings.TrimSpace(line)
	v, perr := strconv.ParseInt(field, 10, 32)
	if perr != nil {
		return 0, fmt.Errorf("%w: bad int32 %q", ErrMalformedArchive, field)
	}
	return int32(v), nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// writeMatrix encodes m in binary ("\0BFM ...") or text form.
func writeMatrix(w io.Writer, m *subsample.Matrix, binaryObj bool) error {
	if binaryObj {
		return writeBinaryMatrix(w, m)
	}
	return writeTextMatrix(w, m)
}

func writeBinaryMatrix(w io.Writer, m *subsample.Matrix) error {
	header := make([]byte, 0, len(binaryHeader)+len(tokenFloatMat)+1+2*(1+4))
	header = append(header, binaryHeader...)
	header = append(header, tokenFloatMat...)
	header = append(header, ' ')
	header = appendBinaryInt32(header, int32(m.NumRows()))
	header = appendBinaryInt32(header, int32(m.NumCols()))
	if _, err := w.Write(header); err != nil {
		return err
	}

	data := m.Data()
	buf := make([]byte, len(data)*float32Size)
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[i*float32Size:], math.Float32bits(v))
	}
	_, err := w.Write(buf)
	return err
}

func appendBinaryInt32(dst []byte, v int32) []byte {
	dst = append(dst, int32SizeByte)
	return binary.LittleEndian.AppendUint32(dst, uint32(v))
}

func writeTextMatrix(w io.Writer, m *subsample.Matrix) error {
	bw := bufio.NewWriter(w)
	if m.NumCols() == 0 {
		_, _ = bw.WriteString(" [ ]\n")
		return bw.Flush()
	}

	_, _ = bw.WriteString(" [")
	for i := range m.NumRows() {
		_, _ = bw.WriteString("\n  ")
		for _, v := range m.Row(i) {
			_, _ = bw.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
			_ = bw.WriteByte(' ')
		}
	}
	_, _ = bw.WriteString("]\n")
	return bw.Flush()
}

// writeInt32 encodes v in binary ("\0B" 0x04 <int32>) or text form.
func writeInt32(w io.Writer, v int32, binaryObj bool) error {
	if binaryObj {
		buf := appendBinaryInt32([]byte(binaryHeader), v)
		_, err := w.Write(buf)
		return err
	}
	_, err := fmt.Fprintf(w, "%d\n", v)
	return err
}
