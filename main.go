// Package main is the entry point for the epr CLI application.
package main

import (
	"fmt"
	"os"

	"github.com/zulhfreelancer/export-pull-requests/cmd"
	"github.com/zulhfreelancer/export-pull-requests/internal/logging"
)

// main executes the root command. All fatal errors funnel here: the message
// is printed to stderr and the process exits non-zero.
func main() {
	if err := cmd.Execute(); err != nil {
		logging.Error("export failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
