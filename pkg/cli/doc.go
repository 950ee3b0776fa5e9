// Package cli formats biovault results for the terminal.
//
// Results are written as YAML (the default), JSON, or a styled text
// summary:
//
//	cli.Output(verdict, cli.OutputOptions{Format: cli.FormatText})
package cli
