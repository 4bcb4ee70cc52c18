package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, the config file, AUTOIMPUTE_*
environment variables and flags are merged, as YAML.`,
		Example: `  AUTOIMPUTE_SCALER=standard autoimpute config --config run.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(configFrom(cmd.Context())); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	addDataFlags(cmd)
	addModelFlags(cmd)
	cmd.Flags().String("strategy", "", "strategy for every column, or a comma-separated list in column order")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "autoimpute %s\n", Version)
		},
	}
}
