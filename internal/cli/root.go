// Package cli provides the autoimpute command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/virtualphoton/autoimpute/internal/config"
	"github.com/virtualphoton/autoimpute/pkg/engine"
)

// Version is set at build time.
var Version = "0.1.0-dev"

type configKey struct{}

type loggerKey struct{}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:   "autoimpute",
		Short: "Impute missing values in tabular data",
		Long: `autoimpute fills missing values column by column. Each column gets its own
strategy (mean, median, mode, random, constant, least squares) and, for
predictive strategies, its own set of predictor columns.

Settings come from flags, AUTOIMPUTE_* environment variables and an optional
YAML, TOML or JSON config file, in that order of precedence.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = context.WithValue(ctx, configKey{}, cfg)
			ctx = context.WithValue(ctx, loggerKey{}, newLogger(cmd.ErrOrStderr(), cfg.Verbose))
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (.yaml, .yml, .toml or .json)")
	root.PersistentFlags().BoolP("verbose", "v", false, "log progress at info level")

	root.AddCommand(newImputeCommand())
	root.AddCommand(newClassifyCommand())
	root.AddCommand(newProfileCommand())
	root.AddCommand(newConfigCommand())
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return 0
}

// exitCode is 2 for configuration and validation errors, 1 otherwise.
func exitCode(err error) int {
	switch {
	case errors.Is(err, engine.ErrConfiguration), errors.Is(err, engine.ErrValidation):
		return 2
	default:
		return 1
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func configFrom(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{}
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
