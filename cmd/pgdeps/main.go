// Package main is the pgdeps command.
package main

import (
	"os"

	"github.com/leapstack-labs/pgdeps/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
