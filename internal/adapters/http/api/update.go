package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/droprelay/internal/app"
	"github.com/okian/droprelay/internal/domain/types"
)

const maxUpdateBody = 64 << 10

// UpdateWriter stores a manual drop.
type UpdateWriter interface {
	Update(ctx context.Context, req service.UpdateRequest) (types.StoredDrop, error)
}

// UpdateHandler handles manual drop submissions.
type UpdateHandler struct {
	deps UpdateWriter
}

// NewUpdateHandler creates a new update handler.
func NewUpdateHandler(deps UpdateWriter) *UpdateHandler {
	return &UpdateHandler{deps: deps}
}

type updateResponse struct {
	Success bool             `json:"success"`
	Data    types.StoredDrop `json:"data"`
}

// HandleUpdate handles POST /update requests.
func (h *UpdateHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update"

	req, err := decodeUpdate(http.MaxBytesReader(w, r.Body, maxUpdateBody))
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge,
			wrapKind(op, ErrTooLarge, fmt.Errorf("limit is %d bytes", tooLarge.Limit)))
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, wrapKind(op, ErrBadRequest, err))
		return
	}

	stored, err := h.deps.Update(r.Context(), req)
	switch {
	case errors.Is(err, service.ErrInvalidUpdate):
		writeError(w, http.StatusBadRequest, wrapKind(op, ErrBadRequest, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, wrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{Success: true, Data: stored})
}

var (
	errMissingFields = errors.New("missing required field")
	errNotScalar     = errors.New("field must be a string, number or boolean")
)

// decodeUpdate reads a loosely typed body. job, name and players may be any
// JSON scalar; ms may be a number or a numeric string.
func decodeUpdate(body io.Reader) (service.UpdateRequest, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return service.UpdateRequest{}, fmt.Errorf("invalid json body: %w", err)
	}
	if raw == nil {
		return service.UpdateRequest{}, errMissingFields
	}

	job, err := requiredScalar(raw, "job")
	if err != nil {
		return service.UpdateRequest{}, err
	}
	name, err := requiredScalar(raw, "name")
	if err != nil {
		return service.UpdateRequest{}, err
	}
	msRaw, ok := raw["ms"]
	if !ok || msRaw == nil {
		return service.UpdateRequest{}, fmt.Errorf("%w: ms", errMissingFields)
	}

	ms, err := parseMoney(msRaw)
	if err != nil {
		return service.UpdateRequest{}, err
	}

	players := ""
	if v, ok := raw["players"]; ok && v != nil {
		p, ok := scalarString(v)
		if !ok {
			return service.UpdateRequest{}, fmt.Errorf("%w: players", errNotScalar)
		}
		players = p
	}

	return service.UpdateRequest{Job: job, Name: name, MS: ms, Players: players}, nil
}

// requiredScalar returns raw[key] as a string. Absent and null values are
// missing; objects and arrays are rejected by name.
func requiredScalar(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: %s", errMissingFields, key)
	}
	s, ok := scalarString(v)
	if !ok {
		return "", fmt.Errorf("%w: %s", errNotScalar, key)
	}
	return s, nil
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func parseMoney(v any) (float64, error) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, errors.New("ms must be a number")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("ms must be a number: %q", s)
	}
	return f, nil
}
