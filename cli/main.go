package main

import (
	"fmt"
	"os"

	"github.com/money-god/mgl-governance/internal/cli"
	"github.com/money-god/mgl-governance/internal/config"
)

// Set with -ldflags at release time
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	config.SetBuildFlags(version, commit, date)

	rootCmd := cli.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
