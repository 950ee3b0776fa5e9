// Package main is the entry point for the biovault service and CLI.
//
// Usage:
//
//	biovault [flags] <command> [subcommand] [args]
//
// Commands:
//
//	serve      - Run the HTTP verification service
//	verify     - Verify two faces or two voices once (face, voice, detect)
//	config     - Print the effective configuration
//	version    - Show version information
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/biovault/verify/cmd/biovault/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		if errors.Is(err, commands.ErrNotVerified) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
