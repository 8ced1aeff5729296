package playbot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	service "github.com/okian/inkplay/internal/app"
	"github.com/okian/inkplay/pkg/logger"
)

// PercentageMultiplier turns ratios into percentages for the report.
const PercentageMultiplier = 100

type job struct {
	game   string
	player string
}

// Run plays cfg.Sessions sessions against the service and returns the tally.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	cfg.withDefaults()
	log := logger.Named("playbot")
	stats := &Stats{StartTime: time.Now(), ByGame: make(map[string]int)}

	log.Info(ctx, "starting inkplay playbot",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("workers", cfg.Workers),
		logger.Int("players", cfg.Players),
		logger.String("game", cfg.Game),
		logger.Duration("timeout", cfg.Timeout))

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	games, err := pickGames(ctx, client, cfg.Game)
	if err != nil {
		return nil, err
	}

	// Player IDs are unique per run so repeat runs start with no claims.
	runID := uuid.NewString()[:8]
	jobs := make(chan job, cfg.Workers*2)
	go func() {
		defer close(jobs)
		for i := 0; i < cfg.Sessions; i++ {
			j := job{
				game:   games[i%len(games)],
				player: fmt.Sprintf("playbot-%s-%d", runID, i%cfg.Players),
			}
			select {
			case <-ctx.Done():
				return
			case jobs <- j:
			}
		}
	}()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				outcome := runSession(ctx, client, j, cfg.Verbose)
				mu.Lock()
				stats.add(j.game, outcome)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, ctx.Err()
}

// pickGames resolves the -game flag against the active catalog.
func pickGames(ctx context.Context, c *Client, want string) ([]string, error) {
	catalog, err := c.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	var keys []string
	for _, g := range catalog {
		if want == GameAll || want == g.Key {
			keys = append(keys, g.Key)
		}
	}
	if len(keys) > 0 {
		return keys, nil
	}
	if want != GameAll {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, want)
	}
	return nil, ErrNoGames
}

func runSession(ctx context.Context, c *Client, j job, verbose bool) Outcome {
	log := logger.Named("playbot").With(logger.String("game", j.game), logger.String("player", j.player))

	v, err := c.Start(ctx, j.game, j.player)
	if err != nil {
		log.Warn(ctx, "start failed", logger.Error(err))
		return OutcomeError
	}
	final, err := play(ctx, c, v)
	if endErr := c.End(ctx, v.ID); endErr != nil && verbose {
		log.Debug(ctx, "end failed", logger.String("session", v.ID), logger.Error(endErr))
	}
	if err != nil {
		log.Warn(ctx, "session failed", logger.String("session", v.ID), logger.Error(err))
		return OutcomeError
	}

	outcome := classify(final)
	if verbose {
		fields := []logger.Field{
			logger.String("session", v.ID),
			logger.String("phase", final.Phase),
			logger.String("outcome", string(outcome)),
		}
		if final.Award != nil {
			fields = append(fields, logger.String("code", final.Award.Code))
		}
		log.Info(ctx, "session finished", fields...)
	}
	return outcome
}

func classify(v service.SessionView) Outcome {
	switch v.Claim {
	case service.ClaimAwarded:
		return OutcomeWin
	case service.ClaimAlreadyClaimed:
		return OutcomeDuplicate
	}
	if v.Finished {
		return OutcomeLoss
	}
	return OutcomeError
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var winRate, sessionsPerSecond float64
	if stats.Sessions > 0 {
		winRate = float64(stats.Wins+stats.Duplicates) / float64(stats.Sessions) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		sessionsPerSecond = float64(stats.Sessions) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("sessions", stats.Sessions),
		logger.Int("wins", stats.Wins),
		logger.Int("losses", stats.Losses),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("errors", stats.Errors),
		logger.Any("byGame", stats.ByGame),
		logger.Duration("duration", stats.Duration),
		logger.Float64("winRate", winRate),
		logger.Float64("sessionsPerSecond", sessionsPerSecond))
}
