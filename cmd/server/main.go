package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/drawcast/internal/cache"
	"github.com/playperu/drawcast/internal/config"
	"github.com/playperu/drawcast/internal/database"
	"github.com/playperu/drawcast/internal/drawday"
	"github.com/playperu/drawcast/internal/eventbus"
	"github.com/playperu/drawcast/internal/gameday"
	"github.com/playperu/drawcast/internal/handler/health"
	"github.com/playperu/drawcast/internal/metrics"
	"github.com/playperu/drawcast/internal/migrations"
	"github.com/playperu/drawcast/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	clock, err := gameday.New(cfg.AnchorZone, cfg.RolloverHour)
	if err != nil {
		return fmt.Errorf("building game-day clock: %w", err)
	}

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	applied, err := migrations.RunContext(ctx, db)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath, "migrations_applied", applied)

	store := server.NewSQLiteStore(db)
	created, err := store.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}
	if created {
		logger.Info("admin account created", "email", cfg.AdminEmail)
	}

	checks := map[string]health.Checker{"sqlite": store}

	// --- Redis (optional) ---
	var dayCache drawday.DayCache
	if cfg.RedisURL != "" {
		rdb, err := cache.Open(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()

		rc := cache.NewDayCache(rdb, cfg.CacheTTL, logger)
		dayCache = rc
		checks["redis"] = rc
		logger.Info("connected to redis")
	}

	// --- Domain ---
	rec := metrics.NewRecorder()
	bus := eventbus.New()
	broker := server.NewBroker(bus, rec)

	games := drawday.NewGames(store, broker, dayCache, logger)
	publisher := drawday.NewPublisher(clock, store, broker, dayCache, logger)
	results := drawday.NewResults(clock, store, dayCache)

	if cfg.SeedDemo {
		if err := server.SeedDemo(ctx, logger, games); err != nil {
			return fmt.Errorf("seeding demo games: %w", err)
		}
	}

	gateway := server.NewGateway(bus, logger, rec, cfg.KeepAliveInterval)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, server.Deps{
		Logger:      logger,
		Store:       store,
		Clock:       clock,
		Publisher:   publisher,
		Games:       games,
		Results:     results,
		Gateway:     gateway,
		Metrics:     rec,
		Checks:      checks,
		CORSOrigins: cfg.CORSOrigins,
		SPADir:      cfg.SPADir,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server",
			"addr", cfg.HTTPAddr,
			"zone", cfg.AnchorZone,
			"rollover_hour", cfg.RolloverHour,
			"game_day", clock.Today(time.Now()).String(),
		)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}
