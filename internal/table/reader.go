package table

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	subsample "github.com/tphakala/subsample-feats"
)

// MatrixReader is a single-pass reader over a table of matrices.
type MatrixReader interface {
	subsample.FeatureSource
	Close() error
}

// OpenMatrixReader opens the table named by rspecifier for sequential
// reading.
func OpenMatrixReader(rspecifier string) (MatrixReader, error) {
	rs, err := ParseRSpecifier(rspecifier)
	if err != nil {
		return nil, err
	}

	switch rs.Kind {
	case KindArchive:
		return openArchiveReader(rs.Path)
	case KindScript:
		return openScriptReader(rs.Path)
	case KindWave:
		return openWaveReader(rs.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrBadSpecifier, rspecifier)
	}
}

// archiveReader streams key/matrix pairs from an archive.
type archiveReader struct {
	closer io.Closer
	r      *bufio.Reader
	path   string
	key    string
	value  *subsample.Matrix
	err    error
	done   bool
}

func openArchiveReader(path string) (*archiveReader, error) {
	rc, err := openInput(path)
	if err != nil {
		return nil, err
	}
	return &archiveReader{
		closer: rc,
		r:      bufio.NewReaderSize(rc, readerBufferSize),
		path:   path,
	}, nil
}

func (a *archiveReader) Next() bool {
	if a.done {
		return false
	}

	key, err := readKey(a.r)
	if err != nil {
		a.done = true
		if !errors.Is(err, io.EOF) {
			a.err = fmt.Errorf("archive %s: %w", a.path, err)
		}
		return false
	}

	m, err := readMatrix(a.r)
	if err != nil {
		a.done = true
		a.err = fmt.Errorf("archive %s, key %s: %w", a.path, key, err)
		return false
	}

	a.key, a.value = key, m
	return true
}

func (a *archiveReader) Key() string              { return a.key }
func (a *archiveReader) Value() *subsample.Matrix { return a.value }
func (a *archiveReader) Err() error               { return a.err }
func (a *archiveReader) Close() error             { return a.closer.Close() }

// scriptEntry is one parsed "key rxfilename[:offset]" line.
type scriptEntry struct {
	key    string
	path   string
	offset int64
}

// parseScriptLine splits a script line into key and location. A trailing
// ":<digits>" on the location is a byte offset into the file.
func parseScriptLine(line string) (scriptEntry, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return scriptEntry{}, false, nil
	}

	key, loc, ok := strings.Cut(line, " ")
	if !ok {
		key, loc, ok = strings.Cut(line, "\t")
	}
	loc = strings.TrimSpace(loc)
	if !ok || loc == "" {
		return scriptEntry{}, false, fmt.Errorf("%w: script line %q has no location", ErrBadSpecifier, line)
	}
	if strings.HasSuffix(loc, "|") {
		return scriptEntry{}, false, fmt.Errorf("%w: piped input %q", ErrUnsupportedFormat, loc)
	}

	entry := scriptEntry{key: key, path: loc}
	if i := strings.LastIndexByte(loc, ':'); i > 0 {
		if off, err := strconv.ParseInt(loc[i+1:], 10, 64); err == nil && off >= 0 {
			entry.path, entry.offset = loc[:i], off
		}
	}
	return entry, true, nil
}

// objectOpener reads objects addressed by script entries, keeping the most
// recently used file open since consecutive entries usually share one.
type objectOpener struct {
	path string
	file *os.File
	r    *bufio.Reader
}

func (o *objectOpener) seek(e scriptEntry) (*bufio.Reader, error) {
	if o.file == nil || o.path != e.path {
		if err := o.Close(); err != nil {
			return nil, err
		}
		f, err := os.Open(e.path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", e.path, err)
		}
		o.file, o.path = f, e.path
		o.r = bufio.NewReaderSize(f, readerBufferSize)
	}

	if _, err := o.file.Seek(e.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek %s to %d: %w", e.path, e.offset, err)
	}
	o.r.Reset(o.file)
	return o.r, nil
}

func (o *objectOpener) Close() error {
	if o.file == nil {
		return nil
	}
	err := o.file.Close()
	o.file, o.r, o.path = nil, nil, ""
	return err
}

// scriptReader streams matrices listed in a script file.
type scriptReader struct {
	closer  io.Closer
	lines   *bufio.Scanner
	path    string
	objects objectOpener
	key     string
	value   *subsample.Matrix
	err     error
	done    bool
}

func openScriptReader(path string) (*scriptReader, error) {
	rc, err := openInput(path)
	if err != nil {
		return nil, err
	}
	return &scriptReader{
		closer: rc,
		lines:  bufio.NewScanner(rc),
		path:   path,
	}, nil
}

func (s *scriptReader) Next() bool {
	for !s.done {
		if !s.lines.Scan() {
			s.done = true
			if err := s.lines.Err(); err != nil {
				s.err = fmt.Errorf("script %s: %w", s.path, err)
			}
			return false
		}

		entry, ok, err := parseScriptLine(s.lines.Text())
		if err != nil {
			return s.fail(err)
		}
		if !ok {
			continue
		}

		r, err := s.objects.seek(entry)
		if err != nil {
			return s.fail(err)
		}
		m, err := readMatrix(r)
		if err != nil {
			return s.fail(fmt.Errorf("script %s, key %s: %w", s.path, entry.key, err))
		}

		s.key, s.value = entry.key, m
		return true
	}
	return false
}

func (s *scriptReader) fail(err error) bool {
	s.done = true
	s.err = err
	return false
}

func (s *scriptReader) Key() string              { return s.key }
func (s *scriptReader) Value() *subsample.Matrix { return s.value }
func (s *scriptReader) Err() error               { return s.err }

func (s *scriptReader) Close() error {
	objErr := s.objects.Close()
	if err := s.closer.Close(); err != nil {
		return err
	}
	return objErr
}
