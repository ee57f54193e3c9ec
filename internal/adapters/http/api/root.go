package api

import (
	"context"
	"net/http"

	"github.com/okian/droprelay/internal/domain/types"
)

// InfoProvider describes the running service.
type InfoProvider interface {
	Info() types.Info
}

// RootHandler handles root path requests.
type RootHandler struct {
	deps InfoProvider
}

// NewRootHandler creates a new root handler.
func NewRootHandler(deps InfoProvider) *RootHandler {
	return &RootHandler{deps: deps}
}

// HandleRoot handles GET / requests.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Info())
}

// LatestProvider reads the fresh drop.
type LatestProvider interface {
	Latest(ctx context.Context) (types.Drop, error)
}

// LatestHandler handles latest drop requests.
type LatestHandler struct {
	deps LatestProvider
}

// NewLatestHandler creates a new latest handler.
func NewLatestHandler(deps LatestProvider) *LatestHandler {
	return &LatestHandler{deps: deps}
}

// HandleLatest handles GET /latest requests. A missing or stale drop is
// served as the zero drop with status 200.
func (h *LatestHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	const op = "api.latest"
	drop, err := h.deps.Latest(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, wrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, drop)
}

// StatusProvider reports feed and cache state.
type StatusProvider interface {
	Status(ctx context.Context) (types.Status, error)
}

// StatusHandler handles status requests.
type StatusHandler struct {
	deps StatusProvider
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(deps StatusProvider) *StatusHandler {
	return &StatusHandler{deps: deps}
}

// HandleStatus handles GET /status requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.status"
	st, err := h.deps.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, wrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}
