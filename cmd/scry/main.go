// Package main is the entry point for the scry command line, which keeps
// flashcard decks and schedules their reviews with FSRS.
package main

import (
	"os"

	"github.com/phrazzld/scry-fsrs/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
