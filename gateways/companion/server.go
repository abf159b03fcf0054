package companion

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	config "github.com/tubescribe/backend/config/companion"
	"github.com/tubescribe/backend/gateways/companion/handler"
	"github.com/tubescribe/backend/services/capture/handoff"
	"github.com/tubescribe/backend/services/store/storage"
	"github.com/tubescribe/backend/services/store/usecase"
	"github.com/tubescribe/backend/topics"
)

// Server is the companion surface: it consumes the hand-off slot, accepts
// manual pastes, and fronts the transcript library.
type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	store   storage.Store
	channel handoff.Channel
	handler *handler.Handler
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Server, error) {
	log.Info("creating new companion server")
	log.Debug("server config",
		slog.Int("port", cfg.Port),
		slog.String("backend", cfg.Backend),
		slog.Bool("redis_configured", cfg.Redis.Host != ""))

	store, err := storage.Select(ctx, storage.Options{
		Preferred:   cfg.Backend,
		SQLitePath:  cfg.SQLitePath,
		PostgresDSN: cfg.Database.DSN(),
		RemoteURL:   cfg.StoreURL,
		RemoteToken: cfg.StoreToken,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("companion: open storage: %w", err)
	}

	channel := newChannel(ctx, cfg, log)
	usc := usecase.New(store)
	h := handler.New(usc, channel, log)

	log.Info("companion server instance created successfully")
	return &Server{
		cfg:     cfg,
		log:     log,
		store:   store,
		channel: channel,
		handler: h,
	}, nil
}

func newChannel(ctx context.Context, cfg *config.Config, log *slog.Logger) handoff.Channel {
	if cfg.Redis.Host == "" {
		log.Warn("no redis host configured, using in-memory hand-off channel")
		return handoff.NewMemory()
	}

	key := topics.Clipboard(cfg.HandoffPrefix).FullName()
	ch, err := handoff.NewRedis(ctx, cfg.Redis.Addr(), cfg.Redis.Password, key, 0)
	if err != nil {
		log.Warn("redis hand-off channel unavailable, falling back to in-memory",
			slog.String("addr", cfg.Redis.Addr()),
			slog.String("error", err.Error()))
		return handoff.NewMemory()
	}
	log.Info("redis hand-off channel connected",
		slog.String("addr", cfg.Redis.Addr()),
		slog.String("key", key))
	return ch
}

func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.handler.RegisterRoutes(router)
	return router
}

func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.log.Info("companion gateway started", slog.String("address", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.log.Info("shutting down companion gateway")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("failed to gracefully shutdown server: %w", err)
		}
	}

	if err := s.store.Close(); err != nil {
		s.log.Warn("closing storage", slog.String("error", err.Error()))
	}
	if closer, ok := s.channel.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.log.Warn("closing hand-off channel", slog.String("error", err.Error()))
		}
	}
	s.log.Info("server shutdown completed successfully")
	return nil
}
