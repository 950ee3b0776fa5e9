package commands

import (
	"github.com/spf13/cobra"

	"github.com/biovault/verify/pkg/cli"
)

var flagConfigFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the --config file and
environment overrides are applied. Secrets are masked. The configuration is
validated first, so this also serves as a config check.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(flagConfigFormat)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return cli.Output(cfg.Redacted(), cli.OutputOptions{Format: format, Writer: cmd.OutOrStdout()})
	},
}

func init() {
	configCmd.Flags().StringVarP(&flagConfigFormat, "output", "o", "yaml", "output format (yaml, json)")
	rootCmd.AddCommand(configCmd)
}
