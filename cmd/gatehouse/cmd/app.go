package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jmcleod/gatehouse/api"
	"github.com/jmcleod/gatehouse/auth"
	"github.com/jmcleod/gatehouse/config"
	"github.com/jmcleod/gatehouse/internal/logging"
	"github.com/jmcleod/gatehouse/session"
	"github.com/jmcleod/gatehouse/storage"
	bboltstorage "github.com/jmcleod/gatehouse/storage/bbolt"
	"github.com/jmcleod/gatehouse/storage/memory"
	"github.com/jmcleod/gatehouse/storage/postgres"
	"github.com/jmcleod/gatehouse/web"
)

// profilePage is only served to browsers holding a live session.
const profilePage = "profile.html"

// openUsers opens the user store selected by cfg. The returned close func
// releases it.
func openUsers(ctx context.Context, cfg *config.Config) (storage.UserRepository, func() error, error) {
	switch cfg.Store {
	case config.StoreBBolt:
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		repo, err := bboltstorage.NewRepositoryFromFile(cfg.BBoltPath(), nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open user storage: %w", err)
		}
		return repo, repo.Close, nil
	case config.StorePostgres:
		repo, err := postgres.NewRepositoryFromDSN(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open user storage: %w", err)
		}
		return repo, func() error { repo.Close(); return nil }, nil
	default:
		return memory.NewRepository(), func() error { return nil }, nil
	}
}

// buildHandler wires the services for cfg on top of users.
func buildHandler(cfg *config.Config, users storage.UserRepository, logger *slog.Logger) (http.Handler, error) {
	hasher, err := auth.NewHasher(cfg.Hasher, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	sessions := session.NewMemoryStore()
	svc := auth.NewService(users, sessions, hasher, auth.WithLogger(logger))
	metrics := api.NewMetrics(sessions)
	a := api.New(svc, api.WithLogger(logger), api.WithMetrics(metrics))

	pages, err := web.Handler(cfg.PublicDir, web.WithGate(profilePage, a.RequirePage("/index.html")))
	if err != nil {
		return nil, err
	}
	return newRouter(a, metrics, pages, logger), nil
}

func newRouter(a *api.API, metrics *api.Metrics, pages http.Handler, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(api.SecurityHeaders)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Mount("/api", a.Router())

	r.Handle("/*", pages)
	return r
}
