// Package main is the jhack CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/Gu1nness/jhack/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
