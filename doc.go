// Package subsample provides per-utterance frame subsampling of feature
// matrices in pure Go.
//
// Each utterance is a matrix of frames (rows are time steps, columns are
// feature dimensions) identified by a string key. A per-utterance control
// value n, looked up by key, selects how the matrix is transformed:
//
//   - n > 0 keeps every n'th frame, starting at a run-wide offset (decimation).
//   - n <= 0 repeats every frame -n times in a row (repetition).
//
// # Quick Start
//
// For a single matrix:
//
//	r, err := subsample.NewFrameResampler(0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := r.Resample(feats, 3)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if out.Skipped {
//	    log.Printf("skipped: %s", out.Reason)
//	}
//
// For a stream of utterances, wire a [FeatureSource], a [ParamLookup] and a
// [FeatureSink] into a [Processor]:
//
//	p := subsample.NewProcessor(source, lookup, sink, r,
//	    subsample.WithLogger(logrus.NewEntry(logger)))
//	stats, err := p.Run()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !stats.Succeeded() {
//	    os.Exit(1)
//	}
//
// # Empty Outputs
//
// The two modes treat an empty result differently. Decimation that selects no
// frame (offset at or past the last frame) is reported as a skipped
// [Outcome]: nothing is written and the utterance counts as failed.
// Repetition with n == 0 produces a zero-row matrix that is written and
// counted as a success.
//
// # Thread Safety
//
// [FrameResampler] holds no mutable state and is safe for concurrent use.
// A [Processor] drives its collaborators from a single goroutine and must not
// be shared.
//
// Concrete collaborators reading and writing Kaldi-style archives live in
// internal/table and are wired together by cmd/subsample-feats.
package subsample
