package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/biovault/verify/cmd/biovault/internal/build"
	"github.com/biovault/verify/pkg/cli"
)

var flagVersionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagVersionFormat != "" {
			format, err := cli.ParseFormat(flagVersionFormat)
			if err != nil {
				return err
			}
			return cli.Output(build.Get(), cli.OutputOptions{Format: format, Writer: cmd.OutOrStdout()})
		}
		fmt.Fprintln(cmd.OutOrStdout(), build.String())
		if verbose {
			fmt.Fprintf(cmd.OutOrStdout(), "  go:     %s\n", build.Get().Go)
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().StringVar(&flagVersionFormat, "format", "", "output format (yaml, json)")
	rootCmd.AddCommand(versionCmd)
}
