package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/inkplay/internal/adapters/claims"
	"github.com/okian/inkplay/internal/adapters/http/api"
	"github.com/okian/inkplay/internal/adapters/http/swagger"
	"github.com/okian/inkplay/internal/adapters/repository"
	app "github.com/okian/inkplay/internal/app"
	"github.com/okian/inkplay/internal/config"
	"github.com/okian/inkplay/internal/domain/game"
	"github.com/okian/inkplay/pkg/logger"
	"github.com/okian/inkplay/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger format comes from the config, so this goes to stderr.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "inkplay stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the stores, the game service and the HTTP server, and blocks
// until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeQuietly(ctx, log, "store", store)

	claimStore, err := openClaims(ctx, cfg)
	if err != nil {
		return err
	}
	if c, ok := claimStore.(io.Closer); ok {
		defer closeQuietly(ctx, log, "claims", c)
	}

	svc := newService(cfg, store, claimStore, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)

	apiOpts := []api.Option{api.WithLogger(log.Named("http"))}
	if cfg.AdminJWTSecret != "" {
		apiOpts = append(apiOpts, api.WithAdminSecret(cfg.AdminJWTSecret))
	} else {
		log.Warn(ctx, "admin_jwt_secret is empty; admin routes are disabled")
	}
	api.NewServer(svc, svc, apiOpts...).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.StoreDriver),
			logger.Bool("redisClaims", cfg.RedisAddr != ""),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newService builds the game service from cfg and the opened stores.
func newService(cfg *config.Config, store repository.Store, claimStore claims.Store, log logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(log.Named("service")),
		app.WithSettingsStore(store),
		app.WithLedger(store),
		app.WithClaimStore(claimStore),
		app.WithPortfolio(cfg.PortfolioImages),
		app.WithSessionTTL(cfg.SessionTTL),
		app.WithJanitorInterval(cfg.JanitorInterval),
		app.WithLedgerWorkers(cfg.LedgerWorkers),
		app.WithLedgerQueueSize(cfg.LedgerQueueSize),
		app.WithRevealDelay(cfg.MemoryRevealDelay),
		app.WithInkMixTimeLimit(cfg.InkMixTimeLimit),
		app.WithRandomSource(game.NewRandom(cfg.RandomSeed)),
	)
}

// openStore returns the settings store and win ledger selected by the config.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return repository.Open(ctx, repository.DriverPostgres, cfg.DatabaseURL)
	case config.DriverSQLite:
		return repository.Open(ctx, repository.DriverSQLite, cfg.SQLitePath)
	default:
		return repository.NewMemoryStore(), nil
	}
}

// openClaims returns the shared Redis claim store when an address is
// configured, and a bounded in-memory one otherwise.
func openClaims(ctx context.Context, cfg *config.Config) (claims.Store, error) {
	if cfg.RedisAddr == "" {
		return claims.NewMemoryStore(
			claims.WithMaxSize(cfg.ClaimCacheSize),
			claims.WithTTL(cfg.ClaimTTL),
		), nil
	}
	return claims.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, claims.WithTTL(cfg.ClaimTTL))
}

func closeQuietly(ctx context.Context, log logger.Logger, what string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Warn(ctx, "close failed", logger.String("resource", what), logger.Error(err))
	}
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
