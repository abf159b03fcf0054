package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	config "github.com/tubescribe/backend/config/store"
	"github.com/tubescribe/backend/pkg/auth"
	"github.com/tubescribe/backend/pkg/logger"
	"github.com/tubescribe/backend/services/store/server"
	"github.com/tubescribe/backend/services/store/storage"
	"github.com/tubescribe/backend/services/store/usecase"
)

func main() {
	log := logger.New(logger.Config{
		Level:      slog.LevelDebug,
		Output:     os.Stderr,
		AddSource:  true,
		JSONFormat: false,
	})
	log.Info("initializing store service")

	cfg := config.MustLoad()
	log.Info("configuration loaded successfully",
		slog.Int("port", cfg.Port),
		slog.String("backend", cfg.Backend),
		slog.Bool("api_token_set", cfg.APIToken != "" || cfg.APITokenHash != ""))

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
	store, err := storage.Select(ctx, storage.Options{
		Preferred:   cfg.Backend,
		SQLitePath:  cfg.SQLitePath,
		PostgresDSN: cfg.Database.DSN(),
	}, log)
	if err != nil {
		log.Error("storage initialization failed", slog.String("error", err.Error()))
		return err
	}
	defer store.Close()

	usc := usecase.New(store)
	verifier := auth.Verifier{Secret: cfg.APIToken, SecretHash: cfg.APITokenHash}

	srv := server.New(cfg.Port, verifier, usc, log)
	if err := srv.Start(ctx); err != nil {
		log.Error("server start failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}
