// Package main is the administrative CLI: schema migrations and quiz seeding.
package main

import (
	"os"

	"github.com/aura-quiz/backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
