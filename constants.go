package subsample

// Control value interpretation
const (
	minDecimationStep = 1 // Smallest control value selecting decimation
)

// Statistics constants
const (
	ratioSampleHint = 1024 // Initial capacity of the per-utterance ratio buffer
)

// Summary log formats, matching the line pair reported at the end of a run.
const (
	summaryMatricesFormat = "Processed %d feature matrices; %d with errors."
	summaryFramesFormat   = "Processed %d input frames and %d output frames."
)

// noRowsReason is reported when decimation would select no frame.
const noRowsReason = "output would have no rows, producing no output"
