package main

// Process exit codes
const (
	exitSuccess = 0   // At least one utterance was written
	exitFailure = 1   // Usage error or no utterance written
	exitFatal   = 255 // Runtime error that aborted the run
)

// CLI defaults
const (
	requiredArgs     = 3
	defaultOffset    = 0
	defaultLogFormat = logFormatText
	envPrefix        = "SUBSAMPLE"
)

// Log formats
const (
	logFormatText = "text"
	logFormatJSON = "json"
)

// Flag names, also used as viper keys
const (
	flagOffset      = "offset"
	flagConfig      = "config"
	flagVerbose     = "verbose"
	flagLogFormat   = "log-format"
	flagSummaryFile = "summary-file"
)
