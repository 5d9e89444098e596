// Package api translates HTTP requests into gatehouse auth flows.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/jmcleod/gatehouse/auth"
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	auth    *auth.Service
	logger  *slog.Logger
	audit   *auditLogger
	metrics *Metrics
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for request errors and audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// WithMetrics records flow outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(a *API) {
		a.metrics = m
	}
}

// New creates a new API instance.
func New(svc *auth.Service, opts ...Option) *API {
	a := &API{auth: svc}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	a.audit = newAuditLogger(a.logger)
	return a
}

// Router returns a chi.Router with all API routes. It is meant to be mounted
// at /api.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/openapi.yaml",
		Path:    "api/docs",
	}, http.HandlerFunc(notFound)))

	r.Post("/register", a.Register)
	r.Post("/login", a.Login)
	r.Post("/logout", a.Logout)

	r.With(a.RequireSession(flowProfile)).Get("/profile", a.Profile)
	r.With(a.RequireSession(flowUpdateProfile)).Post("/update-profile", a.UpdateProfile)
	r.With(a.RequireSession(flowChangePassword)).Post("/change-password", a.ChangePassword)

	return r
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Not Found")
}
