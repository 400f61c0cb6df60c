package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/RishiKendai/codenest/internal/features"
	"github.com/RishiKendai/codenest/internal/logger"
)

// globalOptions holds the flags shared by every command
type globalOptions struct {
	logLevel        string
	noColor         bool
	decodePolicy    string
	excludePatterns []string
}

func (g *globalOptions) featureOptions() (features.Options, error) {
	policy, err := features.ParseDecodePolicy(g.decodePolicy)
	if err != nil {
		return features.Options{}, err
	}
	return features.Options{
		DecodePolicy:    policy,
		ExcludePatterns: g.excludePatterns,
	}, nil
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "codenest",
		Short: "Detect code plagiarism between student projects",
		Long: `codenest extracts lexical and structural features from every project
in a batch, compares all pairs and reports which projects look copied.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.InitConsole(opts.logLevel)
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().StringVar(&opts.decodePolicy, "decode-policy", string(features.DecodeSkip), "how to treat invalid UTF-8: skip, replace or fail")
	root.PersistentFlags().StringSliceVar(&opts.excludePatterns, "exclude", nil, "extra glob patterns to exclude (repeatable)")

	root.AddCommand(
		newCompareCmd(opts),
		newExtractCmd(opts),
		newTrainCmd(),
	)

	return root
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
