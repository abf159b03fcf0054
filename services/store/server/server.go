package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/tubescribe/backend/pkg/auth"
	"github.com/tubescribe/backend/services/store/usecase"
)

// Server exposes the transcript store over bearer-gated JSON endpoints that
// mirror the store interface 1:1.
type Server struct {
	port     int
	log      *slog.Logger
	usecase  usecase.Usecase
	verifier auth.Verifier
}

func New(port int, verifier auth.Verifier, usc usecase.Usecase, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		port:     port,
		log:      log,
		usecase:  usc,
		verifier: verifier,
	}
}

// Router builds the HTTP surface. CORS runs before auth so preflight OPTIONS
// requests are answered permissively without a credential.
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
	router.Use(s.requireAuth)

	router.Post("/init", s.InitHandler)
	router.Post("/transcripts", s.SaveHandler)
	router.Get("/transcripts", s.ListHandler)
	router.Get("/transcripts/search", s.SearchHandler)
	router.Get("/transcripts/{videoID}", s.GetHandler)
	router.Delete("/transcripts/{videoID}", s.DeleteHandler)
	router.Get("/stats", s.StatsHandler)
	router.Get("/export", s.ExportHandler)
	router.Post("/import", s.ImportHandler)

	return router
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.log.Info("store service started", slog.String("address", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.log.Info("shutting down store service")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("failed to gracefully shutdown server: %w", err)
		}
	}
	return nil
}
