// Package main provides the entry point for the doctext CLI.
package main

import (
	"os"

	"github.com/omarfoud/pdf-text-searcher/cmd/doctext/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
