package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	subsample "github.com/tphakala/subsample-feats"
	"github.com/tphakala/subsample-feats/internal/table"
)

// runSummary is the YAML document written by --summary-file.
type runSummary struct {
	RunID       string          `yaml:"run_id"`
	Offset      int             `yaml:"offset"`
	Subsample   string          `yaml:"subsample_rspecifier"`
	Input       string          `yaml:"input_rspecifier"`
	Output      string          `yaml:"output_wspecifier"`
	Stats       subsample.Stats `yaml:"stats"`
	RatioMean   float64         `yaml:"ratio_mean"`
	RatioStdDev float64         `yaml:"ratio_stddev"`
}

// run opens the three tables, processes every utterance and reports the
// outcome. It returns errNothingProcessed when no utterance was written.
func run(opts options, args []string, logger *logrus.Logger) (err error) {
	subsampleSpec, inputSpec, outputSpec := args[0], args[1], args[2]

	runID := uuid.NewString()
	log := logger.WithFields(logrus.Fields{
		"run_id": runID,
		"offset": opts.Offset,
	})

	resampler, err := subsample.NewFrameResampler(opts.Offset)
	if err != nil {
		return err
	}

	source, err := table.OpenMatrixReader(inputSpec)
	if err != nil {
		return fmt.Errorf("failed to open features %s: %w", inputSpec, err)
	}
	defer func() { _ = source.Close() }()

	lookup, err := table.OpenInt32Reader(subsampleSpec)
	if err != nil {
		return fmt.Errorf("failed to open subsampling factors %s: %w", subsampleSpec, err)
	}
	log.WithField("entries", lookup.Len()).Debug("loaded subsampling factors")

	sink, err := table.OpenMatrixWriter(outputSpec)
	if err != nil {
		return fmt.Errorf("failed to open output %s: %w", outputSpec, err)
	}
	// Close output, capturing close errors on success path (flushes buffered archive data)
	defer func() {
		if closeErr := sink.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close output %s: %w", outputSpec, closeErr)
		}
	}()

	stats, err := subsample.NewProcessor(source, lookup, sink, resampler,
		subsample.WithLogger(log)).Run()
	if err != nil {
		return err
	}

	if opts.SummaryFile != "" {
		mean, stdDev := stats.RatioSummary()
		summary := runSummary{
			RunID:       runID,
			Offset:      opts.Offset,
			Subsample:   subsampleSpec,
			Input:       inputSpec,
			Output:      outputSpec,
			Stats:       stats,
			RatioMean:   mean,
			RatioStdDev: stdDev,
		}
		if err := writeSummary(opts.SummaryFile, &summary); err != nil {
			return err
		}
	}

	if !stats.Succeeded() {
		return errNothingProcessed
	}
	return nil
}

// writeSummary writes s as YAML to path.
func writeSummary(path string, s *runSummary) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return enc.Close()
}
