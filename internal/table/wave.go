package table

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	subsample "github.com/tphakala/subsample-feats"
	"github.com/tphakala/subsample-feats/internal/simdops"
)

// waveReader yields each WAV file listed in a wav.scp as a
// samples x channels matrix with values normalized to [-1, 1].
type waveReader struct {
	closer io.Closer
	lines  *bufio.Scanner
	path   string
	key    string
	value  *subsample.Matrix
	err    error
	done   bool
}

func openWaveReader(path string) (*waveReader, error) {
	rc, err := openInput(path)
	if err != nil {
		return nil, err
	}
	return &waveReader{
		closer: rc,
		lines:  bufio.NewScanner(rc),
		path:   path,
	}, nil
}

func (w *waveReader) Next() bool {
	for !w.done {
		if !w.lines.Scan() {
			w.done = true
			if err := w.lines.Err(); err != nil {
				w.err = fmt.Errorf("wav list %s: %w", w.path, err)
			}
			return false
		}

		entry, ok, err := parseScriptLine(w.lines.Text())
		if err != nil {
			return w.fail(err)
		}
		if !ok {
			continue
		}
		if entry.offset != 0 {
			return w.fail(fmt.Errorf("%w: offsets are not supported for WAV entry %s", ErrUnsupportedFormat, entry.key))
		}

		m, err := decodeWAV(entry.path)
		if err != nil {
			return w.fail(fmt.Errorf("wav list %s, key %s: %w", w.path, entry.key, err))
		}
		w.key, w.value = entry.key, m
		return true
	}
	return false
}

func (w *waveReader) fail(err error) bool {
	w.done = true
	w.err = err
	return false
}

func (w *waveReader) Key() string              { return w.key }
func (w *waveReader) Value() *subsample.Matrix { return w.value }
func (w *waveReader) Err() error               { return w.err }
func (w *waveReader) Close() error             { return w.closer.Close() }

// decodeWAV reads a PCM WAV file into a frames x channels matrix.
func decodeWAV(path string) (*subsample.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer func() { _ = f.Close() }()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid WAV file: %s", ErrUnsupportedFormat, path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	return pcmToMatrix(buf, int(decoder.BitDepth))
}

// pcmToMatrix converts interleaved PCM into a frames x channels matrix.
// Trailing samples that do not fill a whole frame are dropped.
func pcmToMatrix(buf *audio.IntBuffer, bitDepth int) (*subsample.Matrix, error) {
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("%w: missing channel count", ErrUnsupportedFormat)
	}
	maxVal, err := maxSampleValue(bitDepth)
	if err != nil {
		return nil, err
	}
	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels

	samples := buf.Data[:frames*channels]
	if bitDepth == bitsPerSample8 {
		// 8-bit PCM is unsigned around a midpoint of 128.
		centered := make([]int, len(samples))
		for i, s := range samples {
			centered[i] = s - unsigned8Midpoint
		}
		samples = centered
	}

	data := make([]float32, len(samples))
	simdops.Normalize(data, samples, maxVal)
	return subsample.NewMatrixFromData(frames, channels, data)
}

// maxSampleValue returns the largest positive sample for the given bit depth.
func maxSampleValue(bitDepth int) (float64, error) {
	switch bitDepth {
	case bitsPerSample8:
		return unsigned8Midpoint - 1, nil
	case bitsPerSample16, bitsPerSample24, bitsPerSample32:
		return float64(int64(1)<<(bitDepth-1) - 1), nil
	default:
		return 0, fmt.Errorf("%w: %d-bit PCM", ErrUnsupportedFormat, bitDepth)
	}
}
