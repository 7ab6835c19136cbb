// Package main is the entry point for the scholarscrape CLI.
package main

import (
	"os"

	"github.com/jmylchreest/scholarscrape/cmd/scholarscrape/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
