package capture

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/tubescribe/backend/config/capture"
	"github.com/tubescribe/backend/gateways/capture/handler"
	"github.com/tubescribe/backend/gateways/capture/monitor"
	"github.com/tubescribe/backend/services/capture/handoff"
	"github.com/tubescribe/backend/topics"
)

type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	channel handoff.Channel
	monitor *monitor.CaptureMonitor
	handler *handler.Handler
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Server, error) {
	log.Info("creating new capture server")
	log.Debug("server config",
		slog.Int("port", cfg.Port),
		slog.String("handoff_prefix", cfg.HandoffPrefix),
		slog.Bool("redis_configured", cfg.Redis.Host != ""))

	channel := newChannel(ctx, cfg, log)

	log.Debug("creating capture monitor")
	mon := monitor.New(channel, log)
	log.Info("capture monitor created successfully")

	log.Debug("creating handler")
	h := handler.New(mon, log)
	log.Info("handler created successfully")

	return &Server{
		cfg:     cfg,
		log:     log,
		channel: channel,
		monitor: mon,
		handler: h,
	}, nil
}

// newChannel wires the hand-off slot. Redis is preferred; with no broker
// configured or reachable the in-process channel keeps a single-binary
// deployment working.
func newChannel(ctx context.Context, cfg *config.Config, log *slog.Logger) handoff.Channel {
	if cfg.Redis.Host == "" {
		log.Warn("no redis host configured, using in-memory hand-off channel")
		return handoff.NewMemory()
	}

	key := topics.Clipboard(cfg.HandoffPrefix).FullName()
	ttl := time.Duration(cfg.HandoffTTLMin) * time.Minute
	ch, err := handoff.NewRedis(ctx, cfg.Redis.Addr(), cfg.Redis.Password, key, ttl)
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

func (s *Server) Start(ctx context.Context) error {
	s.log.Info("starting capture server")
	mux := http.NewServeMux()
	s.handler.RegisterRoutes(mux)

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.log.Info("capture gateway started", slog.String("address", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		s.log.Error("server error received", slog.String("error", err.Error()))
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		s.log.Info("start shutdown", slog.String("signal", sig.String()))
		return s.stop(srv)
	case <-ctx.Done():
		s.log.Info("closing server due to context cancellation")
		return s.stop(srv)
	}
}

func (s *Server) stop(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		s.log.Error("graceful shutdown failed", slog.String("error", err.Error()))
		srv.Close()
		return fmt.Errorf("failed to gracefully shutdown server: %w", err)
	}
	if closer, ok := s.channel.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.log.Warn("closing hand-off channel", slog.String("error", err.Error()))
		}
	}
	s.log.Info("server shutdown completed successfully")
	return nil
}
