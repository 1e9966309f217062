// Package main provides the entry point for the textindex CLI.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/textindex/cmd/textindex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
