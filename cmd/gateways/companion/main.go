package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	config "github.com/tubescribe/backend/config/companion"
	"github.com/tubescribe/backend/gateways/companion"
	"github.com/tubescribe/backend/pkg/logger"
)

func main() {
	log := logger.New(logger.Config{
		Level:      slog.LevelDebug,
		Output:     os.Stderr,
		AddSource:  true,
		JSONFormat: false,
	})
	log.Info("initializing companion gateway")

	cfg := config.MustLoad()
	log.Info("configuration loaded successfully",
		slog.Int("port", cfg.Port),
		slog.String("backend", cfg.Backend),
		slog.Bool("redis_configured", cfg.Redis.Host != ""))

	ctx := logger.WithContext(context.Background(), log)

	rootCtx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer cancel()

	if err := run(rootCtx, cfg, log); err != nil {
		log.Error("application terminated with error", slog.String("error", err.Error()))
		return
	}
	log.Info("application terminated successfully")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	srv, err := companion.New(ctx, cfg, log)
	if err != nil {
		log.Error("server initialization failed", slog.String("error", err.Error()))
		return err
	}

	if err := srv.Start(ctx); err != nil {
		log.Error("server start failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}
