// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/okian/droprelay/internal/adapters/http/swagger"
	service "github.com/okian/droprelay/internal/app"
	"github.com/okian/droprelay/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Latest(ctx context.Context) (types.Drop, error)
	Status(ctx context.Context) (types.Status, error)
	Info() types.Info
	Update(ctx context.Context, req service.UpdateRequest) (types.StoredDrop, error)
	StatsProvider
}

// Server wires HTTP routes for the drop API.
type Server struct {
	rootHandler   *RootHandler
	latestHandler *LatestHandler
	statusHandler *StatusHandler
	updateHandler *UpdateHandler
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	allowOrigin   string
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		rootHandler:   NewRootHandler(deps),
		latestHandler: NewLatestHandler(deps),
		statusHandler: NewStatusHandler(deps),
		updateHandler: NewUpdateHandler(deps),
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(deps),
		allowOrigin:   defaultAllowOrigin,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/", MetricsMiddleware(s.rootHandler.HandleRoot, "root"))
	r.Get("/latest", MetricsMiddleware(s.latestHandler.HandleLatest, "latest"))
	r.Get("/status", MetricsMiddleware(s.statusHandler.HandleStatus, "status"))
	r.Post("/update", MetricsMiddleware(s.updateHandler.HandleUpdate, "update"))
	r.Get("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Get("/metrics", s.healthHandler.HandleMetrics)
}

// Handler builds the full router: recovery, request ids, CORS, the API
// routes and the docs.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(CORS(s.allowOrigin))
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, nil)
	})

	s.Register(ctx, r)
	swagger.Register(ctx, r)
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
