// Package main is the entry point for the toggl-billing CLI.
package main

import (
	"os"

	"toggl-billing/cmd/toggl-billing/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
