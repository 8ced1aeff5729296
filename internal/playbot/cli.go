// Package playbot plays inkplay sessions over HTTP to smoke and load test a
// running service.
package playbot

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/inkplay/pkg/logger"
)

// SetupLogging initializes the global logger for the bot.
func SetupLogging(verbose bool, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	if err := logger.Init(logger.WithWriter(w)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the playbot.
func ShowHelp() {
	os.Stdout.WriteString(`inkplay playbot
===============

Plays memory, ink mix and precision sessions against a running inkplay
service and reports wins, losses, repeat claims and errors.

Usage:
  go run ./cmd/playbot [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -sessions int
        Number of sessions to play (default 30)
  -workers int
        Number of concurrent players (default CPU cores)
  -players int
        Distinct player IDs; fewer than -sessions produces repeat claims (default: one per session)
  -game string
        memory_cards, precision_trace, ink_mix_master or all (default "all")
  -timeout duration
        HTTP request timeout (default 10s)
  -verbose
        Log every session
  -help
        Show this help message

Examples:
  # One session of each game
  go run ./cmd/playbot -sessions 3

  # Hammer the ink mix game with 5 players
  go run ./cmd/playbot -game ink_mix_master -sessions 500 -players 5 -workers 16
`)
}
