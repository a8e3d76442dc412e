package subsample

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// FeatureSource yields (key, matrix) pairs in a single forward pass.
//
// Next advances to the following utterance and reports whether one is
// available; it must be called before the first Key. Once Next returns
// false, Err reports whether iteration stopped on an error.
type FeatureSource interface {
	Next() bool
	Key() string
	Value() *Matrix
	Err() error
}

// ParamLookup returns the control value for an utterance key.
// Implementations return an error wrapping ErrKeyNotFound for absent keys.
type ParamLookup interface {
	Value(key string) (int32, error)
}

// FeatureSink persists matrices in the order they are written.
type FeatureSink interface {
	Write(key string, m *Matrix) error
}

// Processor drives a FeatureSource through a FrameResampler into a
// FeatureSink, looking up the control value of every utterance.
type Processor struct {
	source    FeatureSource
	lookup    ParamLookup
	sink      FeatureSink
	resampler *FrameResampler
	log       *logrus.Entry
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger used for per-utterance diagnostics and the
// final summary.
func WithLogger(entry *logrus.Entry) Option {
	return func(p *Processor) {
		if entry != nil {
			p.log = entry
		}
	}
}

// NewProcessor creates a processor over the given collaborators.
func NewProcessor(source FeatureSource, lookup ParamLookup, sink FeatureSink, resampler *FrameResampler, opts ...Option) *Processor {
	p := &Processor{
		source:    source,
		lookup:    lookup,
		sink:      sink,
		resampler: resampler,
		log:       discardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes every utterance of the source and returns the accumulated
// statistics. A lookup, resampling, source or sink error aborts the run; the
// returned Stats then cover the utterances handled before the failure and no
// summary is logged.
func (p *Processor) Run() (Stats, error) {
	stats := newStats()

	for p.source.Next() {
		key := p.source.Key()
		if err := p.processUtterance(key, p.source.Value(), &stats); err != nil {
			return stats, err
		}
	}
	if err := p.source.Err(); err != nil {
		return stats, fmt.Errorf("failed to read features: %w", err)
	}

	p.logSummary(stats)
	return stats, nil
}

func (p *Processor) processUtterance(key string, feats *Matrix, stats *Stats) error {
	n, err := p.lookup.Value(key)
	if err != nil {
		return fmt.Errorf("failed to look up subsampling factor for utterance %s: %w", key, err)
	}

	outcome, err := p.resampler.Resample(feats, n)
	if err != nil {
		return fmt.Errorf("failed to resample utterance %s: %w", key, err)
	}

	log := p.log.WithFields(logrus.Fields{
		"utterance": key,
		"n":         n,
		"mode":      outcome.Mode,
	})

	if outcome.Skipped {
		log.Warnf("For utterance %s, %s.", key, outcome.Reason)
		stats.recordSkip(feats.NumRows())
		return nil
	}

	if err := p.sink.Write(key, outcome.Output); err != nil {
		return fmt.Errorf("failed to write utterance %s: %w", key, err)
	}
	stats.recordSuccess(feats.NumRows(), outcome.Output.NumRows())

	log.WithFields(logrus.Fields{
		"frames_in":  feats.NumRows(),
		"frames_out": outcome.Output.NumRows(),
	}).Debug("utterance processed")
	return nil
}

func (p *Processor) logSummary(stats Stats) {
	p.log.Infof(summaryMatricesFormat, stats.Done, stats.Errors)
	p.log.Infof(summaryFramesFormat, stats.FramesIn, stats.FramesOut)

	mean, stdDev := stats.RatioSummary()
	p.log.WithFields(logrus.Fields{
		"ratio_mean":   mean,
		"ratio_stddev": stdDev,
	}).Debug("output/input frame ratio")
}

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
