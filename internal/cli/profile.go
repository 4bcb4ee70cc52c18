package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/virtualphoton/autoimpute/internal/config"
	"github.com/virtualphoton/autoimpute/pkg/engine"
	"github.com/virtualphoton/autoimpute/pkg/profile"
)

func newProfileCommand() *cobra.Command {
	var (
		format string
		top    int
	)
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Summarize missing values per column",
		Long: `Report, for every column, its kind, its imputation group, how many values are
observed and missing, and basic statistics.

Output adapts to the environment unless --format is given:
  - Terminal: box table
  - Piped: markdown table`,
		Example: `  autoimpute profile -i air.csv
  autoimpute profile -i big.parquet --chunk-size 100000 --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProfile(cmd.Context(), configFrom(cmd.Context()), cmd.OutOrStdout(), format, top)
		},
	}
	addDataFlags(cmd)
	cmd.Flags().StringVar(&format, "format", "auto", "output format (auto|table|markdown|json)")
	cmd.Flags().IntVar(&top, "top", 5, "most frequent values kept per categorical column")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "table", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

// resolveFormat turns "auto" into table on a terminal and markdown otherwise.
func resolveFormat(format string, w io.Writer) string {
	if format != "auto" {
		return format
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "table"
	}
	return "markdown"
}

func runProfile(ctx context.Context, cfg *config.Config, w io.Writer, format string, top int) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	format = resolveFormat(format, w)
	switch format {
	case "table", "markdown", "json":
	default:
		return fmt.Errorf("%w: unknown format %q (want auto, table, markdown or json)", engine.ErrConfiguration, format)
	}

	var report profile.Report
	if cfg.ChunkSize > 0 {
		src, closer, err := openChunks(cfg.Input, cfg.ChunkSize)
		if err != nil {
			return err
		}
		defer func() { _ = closer.Close() }()
		c := profile.NewCollector(src.Schema(), top)
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := src.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}
			if err := c.ConsumeFrame(f); err != nil {
				return err
			}
		}
		report = c.Report()
	} else {
		f, err := readFrame(ctx, cfg.Input)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		report = profile.Profile(f, top)
	}

	if format == "json" {
		return report.ReportJSON(w)
	}
	report.ReportTable(w, format == "markdown")
	return nil
}
