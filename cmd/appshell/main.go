// Package main is the entry point for the appshell command.
package main

import (
	"fmt"
	"os"

	"github.com/dshills/appshell/internal/cli"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli.Version, cli.Commit, cli.Date = version, commit, date

	if err := cli.NewDefaultCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
