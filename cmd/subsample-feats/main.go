// Command subsample-feats sub-samples feature matrices by taking every n'th
// frame, where n is read per utterance from a table.
//
// Usage:
//
//	subsample-feats [options] <subsample-rspecifier> <in-rspecifier> <out-wspecifier>
//	subsample-feats ark:n.ark ark:feats.ark ark:out.ark
//	subsample-feats --offset 1 ark,t:n.txt scp:feats.scp ark,scp:out.ark,out.scp
//
// A positive n keeps frames offset, offset+n, offset+2n, ...; a non-positive
// n repeats every frame -n times. The exit status is 0 when at least one
// utterance was written, 1 when none was or the arguments are wrong, and 255
// when the run aborted on an error.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// errNothingProcessed reports a run that wrote no utterance.
var errNothingProcessed = errors.New("no feature matrices were written")

// usageError reports malformed arguments or flags.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(execute(os.Args[1:], os.Stderr))
}

// execute runs the command with args and returns the process exit code.
// Usage and logs go to stderr; stdout stays free for "ark:-" output.
func execute(args []string, stderr io.Writer) int {
	logger := logrus.New()
	logger.SetOutput(stderr)

	cmd := newRootCommand(logger, viper.New())
	cmd.SetArgs(args)
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	code := exitCode(err)
	if code == exitFatal {
		logger.WithError(err).Error("subsample-feats failed")
	}
	return code
}

func exitCode(err error) int {
	var ue *usageError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &ue), errors.Is(err, errNothingProcessed):
		return exitFailure
	default:
		return exitFatal
	}
}

// newRootCommand builds the command, binding its flags into v.
func newRootCommand(logger *logrus.Logger, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subsample-feats [options] <subsample-rspecifier> <in-rspecifier> <out-wspecifier>",
		Short: "Sub-samples features by taking every n'th frame, with n read per utterance",
		Long: "Sub-samples features by taking every n'th frame. " +
			"Works in the same way as a fixed-step subsampler but n is read from a table,\n" +
			"which allows a different n per utterance. A non-positive n repeats every frame -n times.",
		Example:       "  subsample-feats ark:n.ark ark:- ark:-",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != requiredArgs {
				_ = cmd.Usage()
				return &usageError{err: fmt.Errorf("expected %d arguments, got %d", requiredArgs, len(args))}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(v)
			if err != nil {
				return err
			}
			configureLogger(logger, opts)
			return run(opts, args, logger)
		},
	}

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		_ = cmd.Usage()
		return &usageError{err: err}
	})

	flags := cmd.Flags()
	flags.Int(flagOffset, defaultOffset, "Start with the feature with this offset, then take every n'th feature.")
	flags.String(flagConfig, "", "Optional config file (yaml, toml or json) providing flag values")
	flags.BoolP(flagVerbose, "v", false, "Verbose output, including per-utterance details")
	flags.String(flagLogFormat, defaultLogFormat, "Log format: text or json")
	flags.String(flagSummaryFile, "", "Write run statistics as YAML to this file")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}

// options holds the resolved command configuration.
type options struct {
	Offset      int
	Verbose     bool
	LogFormat   string
	SummaryFile string
}

// loadOptions resolves flags, environment and the optional config file.
// Bad values are reported as usage errors.
func loadOptions(v *viper.Viper) (options, error) {
	if path := v.GetString(flagConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return options{}, &usageError{err: fmt.Errorf("failed to read config %s: %w", path, err)}
		}
	}

	opts := options{
		Offset:      v.GetInt(flagOffset),
		Verbose:     v.GetBool(flagVerbose),
		LogFormat:   strings.ToLower(v.GetString(flagLogFormat)),
		SummaryFile: v.GetString(flagSummaryFile),
	}
	switch opts.LogFormat {
	case logFormatText, logFormatJSON:
	default:
		return options{}, &usageError{err: fmt.Errorf("unknown log format %q", opts.LogFormat)}
	}
	return opts, nil
}

func configureLogger(logger *logrus.Logger, opts options) {
	if opts.LogFormat == logFormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if opts.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
}
