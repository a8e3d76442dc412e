// Package table reads and writes Kaldi-style tables of feature matrices and
// int32 values.
//
// A table is addressed by a specifier: "ark:path" for an archive of
// key/object pairs, "scp:path" for a script file mapping keys to objects
// stored elsewhere, and "wav:path" for a wav.scp listing WAV files. The path
// "-" stands for stdin or stdout.
package table

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Kind is the storage kind named by a read specifier.
type Kind int

const (
	// KindArchive reads key/object pairs from a single stream.
	KindArchive Kind = iota

	// KindScript reads "key rxfilename[:offset]" lines.
	KindScript

	// KindWave reads "key path.wav" lines and decodes each WAV file.
	KindWave
)

// ReadOptions holds the read-side flags of an rspecifier. They are accepted
// for compatibility; readers in this package always stream in file order.
type ReadOptions struct {
	Sorted       bool
	CalledSorted bool
	Once         bool
	Permissive   bool
}

// RSpecifier is a parsed read specifier.
type RSpecifier struct {
	Kind    Kind
	Path    string
	Options ReadOptions
}

// WSpecifier is a parsed write specifier. ScriptPath is empty unless an scp
// index is written next to the archive.
type WSpecifier struct {
	ArchivePath string
	ScriptPath  string
	Binary      bool
	Flush       bool
}

// ParseRSpecifier parses specifiers such as "ark:feats.ark",
// "scp,s,cs:feats.scp", "ark:-" or "wav:wav.scp".
func ParseRSpecifier(spec string) (RSpecifier, error) {
	head, path, ok := strings.Cut(spec, ":")
	if !ok || path == "" {
		return RSpecifier{}, fmt.Errorf("%w: %q", ErrBadSpecifier, spec)
	}

	var rs RSpecifier
	kinds := 0
	for tok := range strings.SplitSeq(head, ",") {
		switch strings.TrimSpace(tok) {
		case kindArchive:
			rs.Kind = KindArchive
			kinds++
		case kindScript:
			rs.Kind = KindScript
			kinds++
		case kindWave:
			rs.Kind = KindWave
			kinds++
		case "s":
			rs.Options.Sorted = true
		case "cs":
			rs.Options.CalledSorted = true
		case "o":
			rs.Options.Once = true
		case "p":
			rs.Options.Permissive = true
		case "ns", "nc", "no", "np", "t", "b", "bg":
		default:
			return RSpecifier{}, fmt.Errorf("%w: unknown option %q in %q", ErrBadSpecifier, tok, spec)
		}
	}
	if kinds != 1 {
		return RSpecifier{}, fmt.Errorf("%w: need exactly one of ark, scp, wav in %q", ErrBadSpecifier, spec)
	}

	rs.Path = path
	return rs, nil
}

// ParseWSpecifier parses specifiers such as "ark:out.ark", "ark,t:-" or
// "ark,scp:out.ark,out.scp". Binary output is the default.
func ParseWSpecifier(spec string) (WSpecifier, error) {
	head, path, ok := strings.Cut(spec, ":")
	if !ok || path == "" {
		return WSpecifier{}, fmt.Errorf("%w: %q", ErrBadSpecifier, spec)
	}

	ws := WSpecifier{Binary: true}
	var hasArchive, hasScript bool
	for tok := range strings.SplitSeq(head, ",") {
		switch strings.TrimSpace(tok) {
		case kindArchive:
			hasArchive = true
		case kindScript:
			hasScript = true
		case "t":
			ws.Binary = false
		case "b":
			ws.Binary = true
		case "f":
			ws.Flush = true
		case "nf":
			ws.Flush = false
		case "p":
		default:
			return WSpecifier{}, fmt.Errorf("%w: unknown option %q in %q", ErrBadSpecifier, tok, spec)
		}
	}

	switch {
	case hasArchive && hasScript:
		arkPath, scpPath, ok := strings.Cut(path, ",")
		if !ok || arkPath == "" || scpPath == "" {
			return WSpecifier{}, fmt.Errorf("%w: ark,scp needs two paths in %q", ErrBadSpecifier, spec)
		}
		if arkPath == stdStream {
			return WSpecifier{}, fmt.Errorf("%w: cannot index an archive written to stdout", ErrBadSpecifier)
		}
		ws.ArchivePath, ws.ScriptPath = arkPath, scpPath
	case hasArchive:
		ws.ArchivePath = path
	default:
		return WSpecifier{}, fmt.Errorf("%w: writing needs ark in %q", ErrBadSpecifier, spec)
	}
	return ws, nil
}

// openInput opens path for reading, with "-" meaning stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == stdStream {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

// createOutput creates path for writing, with "-" meaning stdout.
func createOutput(path string) (io.WriteCloser, error) {
	if path == stdStream {
		return nopWriteCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
