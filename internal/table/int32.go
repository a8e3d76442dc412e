package table

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	subsample "github.com/tphakala/subsample-feats"
)

// Int32Reader gives random access to a table of int32 values. The whole
// table is loaded when the reader is opened.
type Int32Reader struct {
	values map[string]int32
	source string
}

// OpenInt32Reader loads the int32 table named by rspecifier. Archive and
// script tables are supported.
func OpenInt32Reader(rspecifier string) (*Int32Reader, error) {
	rs, err := ParseRSpecifier(rspecifier)
	if err != nil {
		return nil, err
	}

	rc, err := openInput(rs.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	reader := &Int32Reader{values: make(map[string]int32), source: rspecifier}
	switch rs.Kind {
	case KindArchive:
		err = reader.loadArchive(bufio.NewReaderSize(rc, readerBufferSize))
	case KindScript:
		err = reader.loadScript(rc)
	default:
		err = fmt.Errorf("%w: int32 tables must be ark or scp: %q", ErrBadSpecifier, rspecifier)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", rspecifier, err)
	}
	return reader, nil
}

func (t *Int32Reader) loadArchive(r *bufio.Reader) error {
	for {
		key, err := readKey(r)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		v, err := readInt32(r)
		if err != nil {
			return fmt.Errorf("key %s: %w", key, err)
		}
		if err := t.add(key, v); err != nil {
			return err
		}
	}
}

func (t *Int32Reader) loadScript(r io.Reader) error {
	var objects objectOpener
	defer func() { _ = objects.Close() }()

	lines := bufio.NewScanner(r)
	for lines.Scan() {
		entry, ok, err := parseScriptLine(lines.Text())
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		br, err := objects.seek(entry)
		if err != nil {
			return err
		}
		v, err := readInt32(br)
		if err != nil {
			return fmt.Errorf("key %s: %w", entry.key, err)
		}
		if err := t.add(entry.key, v); err != nil {
			return err
		}
	}
	return lines.Err()
}

func (t *Int32Reader) add(key string, v int32) error {
	if _, dup := t.values[key]; dup {
		return fmt.Errorf("%w: duplicate key %q", ErrMalformedArchive, key)
	}
	t.values[key] = v
	return nil
}

// Value returns the value stored for key, or an error wrapping
// subsample.ErrKeyNotFound.
func (t *Int32Reader) Value(key string) (int32, error) {
	v, ok := t.values[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q in %s", subsample.ErrKeyNotFound, key, t.source)
	}
	return v, nil
}

// HasKey reports whether key is present.
func (t *Int32Reader) HasKey(key string) bool {
	_, ok := t.values[key]
	return ok
}

// Len returns the number of entries.
func (t *Int32Reader) Len() int { return len(t.values) }
