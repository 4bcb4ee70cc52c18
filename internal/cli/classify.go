package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/virtualphoton/autoimpute/internal/config"
	"github.com/virtualphoton/autoimpute/pkg/frame"
	"github.com/virtualphoton/autoimpute/pkg/imputer"
)

func newClassifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Predict which cells are missing",
		Long: `Train a nearest-neighbour classifier per column on the input's missingness
and write one 0/1 column per input column, suffixed with "` + imputer.MissingSuffix + `".`,
		Example: `  autoimpute classify -i air.csv --neighbors 3 -o air_mis.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClassify(cmd.Context(), configFrom(cmd.Context()), loggerFrom(cmd.Context()), cmd.OutOrStdout())
		},
	}
	addDataFlags(cmd)
	addModelFlags(cmd)
	f := cmd.Flags()
	f.StringP("output", "o", "", "output path (stdout as CSV when empty)")
	f.String("output-type", "", "output type, inferred from the path when empty (csv|jsonl|parquet|arrow)")
	f.Int("neighbors", 0, "neighbours used by the classifier")
	return cmd
}

func runClassify(ctx context.Context, cfg *config.Config, log *slog.Logger, stdout io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	preds, err := cfg.PredictorSpec()
	if err != nil {
		return err
	}
	clf, err := imputer.NewMissingnessClassifier(
		imputer.ClassifierConfig{Predictors: preds, Neighbors: cfg.Neighbors},
		engineOptions(cfg, log)...,
	)
	if err != nil {
		return err
	}
	data, err := readFrame(ctx, cfg.Input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	var out *frame.Frame
	if cfg.Fit.Path != "" {
		fitSrc := cfg.Fit
		fitSrc.HasHeader = cfg.Input.HasHeader
		fitSrc.SampleRows = cfg.Input.SampleRows
		fitFrame, err := readFrame(ctx, fitSrc)
		if err != nil {
			return fmt.Errorf("read fit data: %w", err)
		}
		if err := clf.Fit(ctx, fitFrame); err != nil {
			return err
		}
		out, err = clf.Predict(ctx, data)
		if err != nil {
			return err
		}
	} else if out, err = clf.FitPredict(ctx, data); err != nil {
		return err
	}
	log.Info("classified", "rows", out.Rows(), "columns", out.Cols())
	return writeFrame(cfg.Output, out, stdout)
}
