package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// Options carries everything Select needs to stand up any backend.
type Options struct {
	Preferred   string
	SQLitePath  string
	PostgresDSN string
	RemoteURL   string
	RemoteToken string
}

// Select opens the preferred backend and falls back down the compatibility
// chain (preferred, then sqlite, then memory) when a backend fails to
// initialize. Memory always succeeds, so Select only errors on a broken
// fallback chain configuration.
func Select(ctx context.Context, opts Options, log *slog.Logger) (Store, error) {
	if log == nil {
		log = slog.Default()
	}

	chain := []string{opts.Preferred, "sqlite", "memory"}
	var lastErr error
	for _, backend := range chain {
		if backend == "" {
			continue
		}
		store, err := open(ctx, backend, opts)
		if err != nil {
			lastErr = err
			log.Warn("storage backend unavailable, falling back",
				slog.String("backend", backend),
				slog.String("error", err.Error()))
			continue
		}
		if _, err := store.Init(ctx); err != nil {
			store.Close()
			lastErr = err
			log.Warn("storage backend failed init, falling back",
				slog.String("backend", backend),
				slog.String("error", err.Error()))
			continue
		}
		log.Info("storage backend selected", slog.String("backend", backend))
		return store, nil
	}
	return nil, fmt.Errorf("storage: no backend available: %w", lastErr)
}

func open(ctx context.Context, backend string, opts Options) (Store, error) {
	switch backend {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		path := opts.SQLitePath
		if path == "" {
			path = "transcripts.db"
		}
		return NewSQLite(path)
	case "postgres":
		return NewPostgres(ctx, opts.PostgresDSN)
	case "remote":
		if opts.RemoteURL == "" {
			return nil, fmt.Errorf("storage: remote backend needs a base URL")
		}
		return NewRemote(opts.RemoteURL, opts.RemoteToken), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}
