// Package main provides the forthls command.
package main

import (
	"os"

	"github.com/leapstack-labs/forthls/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
