package subsample

import (
	"gonum.org/v1/gonum/stat"
)

// Stats accumulates counters over one run.
type Stats struct {
	// Done is the number of utterances written to the sink.
	Done int64 `yaml:"done"`

	// Errors is the number of utterances skipped because decimation
	// selected no frame.
	Errors int64 `yaml:"errors"`

	// FramesIn is the total number of input frames seen, skipped
	// utterances included.
	FramesIn int64 `yaml:"frames_in"`

	// FramesOut is the total number of frames written.
	FramesOut int64 `yaml:"frames_out"`

	// ratios holds output/input frame ratios of utterances with input frames.
	ratios []float64
}

func newStats() Stats {
	return Stats{ratios: make([]float64, 0, ratioSampleHint)}
}

// recordSuccess counts an utterance written with framesOut frames.
func (s *Stats) recordSuccess(framesIn, framesOut int) {
	s.Done++
	s.FramesIn += int64(framesIn)
	s.FramesOut += int64(framesOut)
	if framesIn > 0 {
		s.ratios = append(s.ratios, float64(framesOut)/float64(framesIn))
	}
}

// recordSkip counts an utterance that produced no output.
func (s *Stats) recordSkip(framesIn int) {
	s.Errors++
	s.FramesIn += int64(framesIn)
}

// Succeeded reports whether at least one utterance was written.
func (s Stats) Succeeded() bool { return s.Done > 0 }

// Utterances returns the number of utterances processed, skipped ones
// included.
func (s Stats) Utterances() int64 { return s.Done + s.Errors }

// RatioSummary returns the mean and standard deviation of the per-utterance
// output/input frame ratio over written utterances with at least one input
// frame. Both are zero when no such utterance exists; the
// deviation is zero for a single utterance.
func (s Stats) RatioSummary() (mean, stdDev float64) {
	switch len(s.ratios) {
	case 0:
		return 0, 0
	case 1:
		return s.ratios[0], 0
	default:
		return stat.MeanStdDev(s.ratios, nil)
	}
}
