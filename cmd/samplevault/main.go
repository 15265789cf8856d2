// Package main provides the entry point for the samplevault CLI.
package main

import (
	"os"

	"samplevault/cmd/samplevault/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
