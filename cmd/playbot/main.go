package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/inkplay/internal/playbot"
)

// Default configuration constants.
const (
	defaultSessions = 30
	defaultTimeout  = 10 * time.Second
	defaultRunLimit = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		sessions = flag.Int("sessions", defaultSessions, "Number of sessions to play")
		workers  = flag.Int("workers", runtime.NumCPU(), "Number of concurrent players")
		players  = flag.Int("players", 0, "Distinct player IDs (default: one per session)")
		gameKey  = flag.String("game", playbot.GameAll, "Game key to play, or all")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose  = flag.Bool("verbose", false, "Log every session")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		playbot.ShowHelp()
		return
	}

	if err := playbot.SetupLogging(*verbose, os.Stdout); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunLimit)
	defer cancel()

	stats, err := playbot.Run(ctx, playbot.Config{
		BaseURL:  *baseURL,
		Sessions: *sessions,
		Workers:  *workers,
		Players:  *players,
		Game:     *gameKey,
		Timeout:  *timeout,
		Verbose:  *verbose,
	})
	if err != nil {
		os.Stderr.WriteString("Playbot failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	if stats.Errors > 0 {
		os.Exit(2)
	}
}
