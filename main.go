// Package main is the entry point for the sourcing service.
package main

import (
	"fmt"
	"os"

	"github.com/north-cloud/sourcing/cmd"
)

// version can be set at build time via -ldflags.
var version = "dev"

func main() {
	cmd.Version = version
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
