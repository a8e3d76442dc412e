package table

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	subsample "github.com/tphakala/subsample-feats"
)

// countingWriter tracks the archive byte offset for scp indexes.
type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// MatrixWriter writes matrices to an archive in call order, optionally
// indexing them in an scp file.
type MatrixWriter struct {
	spec    WSpecifier
	ark     io.WriteCloser
	arkBuf  *countingWriter
	scp     io.WriteCloser
	scpBuf  *bufio.Writer
	written int
}

// OpenMatrixWriter opens the table named by wspecifier for writing.
func OpenMatrixWriter(wspecifier string) (*MatrixWriter, error) {
	ws, err := ParseWSpecifier(wspecifier)
	if err != nil {
		return nil, err
	}

	ark, err := createOutput(ws.ArchivePath)
	if err != nil {
		return nil, err
	}
	w := &MatrixWriter{
		spec:   ws,
		ark:    ark,
		arkBuf: &countingWriter{w: bufio.NewWriterSize(ark, writerBufferSize)},
	}

	if ws.ScriptPath != "" {
		scp, err := createOutput(ws.ScriptPath)
		if err != nil {
			_ = ark.Close()
			return nil, err
		}
		w.scp = scp
		w.scpBuf = bufio.NewWriter(scp)
	}
	return w, nil
}

// Write appends key and m to the archive.
func (w *MatrixWriter) Write(key string, m *subsample.Matrix) error {
	if key == "" || strings.ContainsAny(key, " \t\r\n") {
		return fmt.Errorf("%w: invalid key %q", ErrBadSpecifier, key)
	}

	if _, err := io.WriteString(w.arkBuf, key+" "); err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	offset := w.arkBuf.n
	if err := writeMatrix(w.arkBuf, m, w.spec.Binary); err != nil {
		return fmt.Errorf("failed to write matrix %s: %w", key, err)
	}

	if w.scpBuf != nil {
		if _, err := fmt.Fprintf(w.scpBuf, "%s %s:%d\n", key, w.spec.ArchivePath, offset); err != nil {
			return fmt.Errorf("failed to index %s: %w", key, err)
		}
	}

	w.written++
	if w.spec.Flush {
		return w.flush()
	}
	return nil
}

// Written returns the number of matrices written.
func (w *MatrixWriter) Written() int { return w.written }

func (w *MatrixWriter) flush() error {
	if err := w.arkBuf.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush archive: %w", err)
	}
	if w.scpBuf != nil {
		if err := w.scpBuf.Flush(); err != nil {
			return fmt.Errorf("failed to flush script: %w", err)
		}
	}
	return nil
}

// Close flushes buffered output and closes the underlying files.
func (w *MatrixWriter) Close() (err error) {
	err = w.flush()
	if closeErr := w.ark.Close(); err == nil {
		err = closeErr
	}
	if w.scp != nil {
		if closeErr := w.scp.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}
