package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/park285/cheese-chess-server/internal/arena"
	appcfg "github.com/park285/cheese-chess-server/internal/config"
	"github.com/park285/cheese-chess-server/internal/gateway"
	"github.com/park285/cheese-chess-server/internal/msgcat"
	"github.com/park285/cheese-chess-server/internal/obslog"
	"github.com/park285/cheese-chess-server/internal/pvpchess"
	"github.com/park285/cheese-chess-server/internal/rating"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: loading .env: %v", err)
	}

	cmd := &cli.Command{
		Name:  "chess-server",
		Usage: "real-time two-player chess over websockets",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address, overrides LISTEN_ADDR"},
			&cli.StringFlag{Name: "log-level", Usage: "debug|info|warn|error", Sources: cli.EnvVars("LOG_LEVEL")},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatalf("chess-server: %v", err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if err := obslog.InitFromEnv(cmd.String("log-level")); err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if addr := cmd.String("addr"); addr != "" {
		cfg.ListenAddr = addr
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var (
		archive  arena.Archiver
		profiles rating.ProfileStore = rating.NewMemoryProfiles()
	)
	if cfg.DatabaseURL != "" {
		repo, err := pvpchess.NewRepository(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer repo.Close()
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("games schema: %w", err)
		}
		pg := rating.NewPostgresProfiles(repo.DB())
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("profiles schema: %w", err)
		}
		archive, profiles = repo, pg
	} else {
		logger.Warn("database_disabled", zap.String("reason", "DATABASE_URL empty; profiles kept in memory, results not archived"))
	}

	hooks := rating.Chain{rating.NewElo(profiles)}
	if cfg.RatingWebhookURL != "" {
		var opts []rating.WebhookOption
		if cfg.RatingWebhookToken != "" {
			opts = append(opts, rating.WithHeader("Authorization", "Bearer "+cfg.RatingWebhookToken))
		}
		hooks = append(hooks, rating.NewWebhook(cfg.RatingWebhookURL, opts...))
	}

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return fmt.Errorf("messages: %w", err)
	}

	coord := arena.New(arena.Options{
		Store:    store,
		Rating:   hooks,
		Archive:  archive,
		Messages: msgs,
		Logger:   logger,
		TimeControl: pvpchess.TimeControl{
			Base:      cfg.TimeControlBase,
			Increment: cfg.TimeControlIncrement,
		},
		Rated:        cfg.RatedGames,
		TickInterval: cfg.ClockTick,
		Grace:        cfg.ReconnectGrace,
	})
	defer coord.Stop()

	games, err := store.LoadOngoing(ctx)
	if err != nil {
		logger.Error("recovery_load_error", zap.Error(err))
	} else if len(games) > 0 {
		downSince := arena.EstimateDownSince(ctx, store, games, time.Now())
		n := coord.RecoverOngoingGames(ctx, games, downSince)
		logger.Info("recovery_done", zap.Int("games", n), zap.Time("down_since", downSince))
	}

	go func() {
		if err := coord.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("clock_loop_exit", zap.Error(err))
		}
	}()

	gw := gateway.NewServer(coord, gateway.Options{Logger: logger, OriginPatterns: cfg.AllowedOrigins})
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- httpSrv.ListenAndServe() }()
	logger.Info("server_start",
		zap.String("addr", cfg.ListenAddr),
		zap.String("time_control", coordTimeControl(cfg)),
		zap.Bool("redis", cfg.RedisURL != ""),
		zap.Bool("postgres", cfg.DatabaseURL != ""),
	)

	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown_error", zap.Error(err))
	}
	logger.Info("server_stop")
	return nil
}

// openStore picks Redis when REDIS_URL is set and falls back to process memory.
func openStore(cfg *appcfg.AppConfig) (pvpchess.GameStore, func(), error) {
	if cfg.RedisURL == "" {
		obslog.L().Warn("redis_disabled", zap.String("reason", "REDIS_URL empty; games will not survive a restart"))
		return pvpchess.NewMemoryStore(), func() {}, nil
	}
	rs, err := pvpchess.NewRedisStore(cfg.RedisURL, cfg.GameRetention)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return rs, func() { _ = rs.Close() }, nil
}

func coordTimeControl(cfg *appcfg.AppConfig) string {
	return pvpchess.TimeControl{Base: cfg.TimeControlBase, Increment: cfg.TimeControlIncrement}.String()
}
