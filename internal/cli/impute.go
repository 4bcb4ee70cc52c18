package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/virtualphoton/autoimpute/internal/config"
	"github.com/virtualphoton/autoimpute/pkg/engine"
	"github.com/virtualphoton/autoimpute/pkg/frame"
	"github.com/virtualphoton/autoimpute/pkg/imputer"
)

// addDataFlags registers the input flags shared by every data command.
func addDataFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("input", "i", "", "input path (csv, jsonl, parquet, arrow; .gz allowed; - for stdin)")
	f.String("input-type", "", "input type, inferred from the path when empty (csv|jsonl|parquet|arrow|sql)")
	f.String("delimiter", "", "CSV delimiter, sniffed when empty (\\t for tab)")
	f.Bool("no-header", false, "CSV input has no header row")
	f.Int("sample-rows", 0, "rows sampled to infer column kinds")
	f.String("driver", "", "sql driver (sqlite|postgres)")
	f.String("dsn", "", "sql data source name")
	f.String("query", "", "sql query whose result is the input")
	f.Int("chunk-size", 0, "process the input in chunks of this many rows (0 reads it whole)")
}

// addModelFlags registers the flags that configure the imputation engine.
func addModelFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("predictors", "", "predictor columns: all, a column, or a comma-separated list")
	f.String("scaler", "", "scale numeric predictors before fitting (standard|minmax)")
	f.String("fit", "", "fit on this dataset instead of the input")
}

func newImputeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "impute",
		Short: "Fill missing values",
		Long: `Fit one imputer per column and write the input with every missing cell
filled. Columns without missing values are copied unchanged.`,
		Example: `  # Impute with the default strategy (mean for numbers, mode otherwise)
  autoimpute impute -i air.csv -o air_filled.csv

  # One strategy per column, in column order
  autoimpute impute -i air.csv --strategy "default,least squares,mean,median,mean,mode,mode"

  # Stream a large file in chunks, fitting on a sample
  autoimpute impute -i big.csv.gz --fit sample.csv --chunk-size 50000 -o big_filled.parquet`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImpute(cmd.Context(), configFrom(cmd.Context()), loggerFrom(cmd.Context()), cmd.OutOrStdout())
		},
	}
	addDataFlags(cmd)
	addModelFlags(cmd)
	f := cmd.Flags()
	f.StringP("output", "o", "", "output path (stdout as CSV when empty)")
	f.String("output-type", "", "output type, inferred from the path when empty (csv|jsonl|parquet|arrow)")
	f.String("strategy", "", "strategy for every column, or a comma-separated list in column order")
	f.Int64("seed", 0, "seed for the random strategy (0 draws a fresh seed)")
	return cmd
}

func engineOptions(cfg *config.Config, log *slog.Logger) []engine.Option {
	return []engine.Option{
		engine.WithLogger(log),
		engine.WithVerbose(cfg.Verbose),
		engine.WithScalerName(cfg.Scaler),
		engine.WithParams(cfg.ImputerParams()),
	}
}

func runImpute(ctx context.Context, cfg *config.Config, log *slog.Logger, stdout io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	strategy, err := cfg.StrategySpec()
	if err != nil {
		return err
	}
	preds, err := cfg.PredictorSpec()
	if err != nil {
		return err
	}
	imp, err := imputer.NewSingle(imputer.SingleConfig{Strategy: strategy, Predictors: preds}, engineOptions(cfg, log)...)
	if err != nil {
		return err
	}

	if cfg.Fit.Path != "" {
		fitSrc := cfg.Fit
		fitSrc.HasHeader = cfg.Input.HasHeader
		fitSrc.SampleRows = cfg.Input.SampleRows
		fitFrame, err := readFrame(ctx, fitSrc)
		if err != nil {
			return fmt.Errorf("read fit data: %w", err)
		}
		if err := imp.Fit(ctx, fitFrame); err != nil {
			return err
		}
		log.Info("fitted", "rows", fitFrame.Rows(), "source", cfg.Fit.Path)
	}

	if cfg.ChunkSize > 0 {
		return imputeChunks(ctx, cfg, log, imp)
	}

	data, err := readFrame(ctx, cfg.Input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	var out *frame.Frame
	if cfg.Fit.Path != "" {
		out, err = imp.Transform(ctx, data)
	} else {
		out, err = imp.FitTransform(ctx, data)
	}
	if err != nil {
		return err
	}
	logStrategies(log, imp.Strategies())
	log.Info("imputed", "rows", data.Rows(), "cells", missingCells(data)-missingCells(out))
	return writeFrame(cfg.Output, out, stdout)
}

// imputeChunks streams the input through the imputer. Without a fit source
// the imputer is fitted on the first chunk.
func imputeChunks(ctx context.Context, cfg *config.Config, log *slog.Logger, imp *imputer.Single) error {
	src, closer, err := openChunks(cfg.Input, cfg.ChunkSize)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()
	sink, err := openSink(cfg.Output, src.Schema())
	if err != nil {
		return err
	}
	counted := &countingSource{src: src}
	if err := frame.RunStream(ctx, frame.NewPipeline().Add(imp), counted, sink); err != nil {
		return err
	}
	logStrategies(log, imp.Strategies())
	log.Info("imputed", "rows", counted.rows, "chunks", counted.chunks)
	return nil
}

type countingSource struct {
	src    frame.ChunkSource
	rows   int
	chunks int
}

func (c *countingSource) Next() (*frame.Frame, error) {
	f, err := c.src.Next()
	if err == nil {
		c.rows += f.Rows()
		c.chunks++
	}
	return f, err
}

func logStrategies(log *slog.Logger, strategies map[string]string) {
	names := make([]string, 0, len(strategies))
	for k := range strategies {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, n := range names {
		log.Debug("strategy", "column", n, "strategy", strategies[n])
	}
}

func missingCells(f *frame.Frame) int {
	n := 0
	for i := 0; i < f.Cols(); i++ {
		n += frame.NullCount(f.Column(i))
	}
	return n
}
