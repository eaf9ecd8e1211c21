// Package http exposes a service over HTTP: event dispatch, the event log
// and module inspection.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ComplyCloud/brane/adapters/sqlite"
	"github.com/ComplyCloud/brane/core/eventlog"
	"github.com/ComplyCloud/brane/core/fault"
	"github.com/ComplyCloud/brane/core/schema"
	"github.com/ComplyCloud/brane/core/service"
)

// maxBodyBytes bounds an event payload.
const maxBodyBytes = 1 << 20

// Service is the part of *service.Service the handlers use.
type Service interface {
	Dispatch(ctx context.Context, name string, payload map[string]any) (*service.Event, any, error)
	EventLog() *eventlog.Log[*service.Event]
	Events() *service.EventRegistry
	Modules() []string
	Order() []string
	Describe() ([]service.ModuleInfo, error)
	State() service.State
}

// Journal lists persisted events.
type Journal interface {
	Entries(ctx context.Context, event string, limit int) ([]sqlite.JournalEntry, error)
	Count(ctx context.Context) (int64, error)
}

// DispatchResponse is returned for a processed event.
type DispatchResponse struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Result    any       `json:"result,omitempty"`
}

// EventTypeResponse describes a registered event class.
type EventTypeResponse struct {
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Dependencies []string        `json:"dependencies"`
	Schema       schema.Document `json:"schema"`
}

// ModulesResponse describes the module set.
type ModulesResponse struct {
	State   string               `json:"state"`
	Modules []string             `json:"modules"`
	Order   []string             `json:"order"`
	Graph   []service.ModuleInfo `json:"graph"`
}

// Handler serves the event and inspection endpoints.
type Handler struct {
	svc     Service
	journal Journal
	logger  zerolog.Logger
}

// NewHandler creates a Handler for svc. journal may be nil.
func NewHandler(svc Service, journal Journal, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, journal: journal, logger: logger}
}

// Dispatch handles POST /events/{name}. The body is a JSON object holding
// the payload; an empty body is an empty payload.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	payload, err := decodePayload(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ev, result, err := h.svc.Dispatch(r.Context(), name, payload)
	if err != nil {
		if fault.StatusCode(err) >= http.StatusInternalServerError {
			h.logger.Error().Err(err).Str("event", name).Msg("event dispatch failed")
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, DispatchResponse{
		ID:        ev.ID,
		Event:     ev.Name(),
		Timestamp: ev.Timestamp,
		Result:    result,
	})
}

// ListEvents handles GET /events. The optional limit query returns only the
// newest entries.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	log := h.svc.EventLog()
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	entries := log.Entries()
	if limit >= 0 {
		entries = log.Tail(limit)
	}
	if entries == nil {
		entries = []*service.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": entries,
		"total":  log.Len(),
	})
}

// ListEventTypes handles GET /event-types.
func (h *Handler) ListEventTypes(w http.ResponseWriter, r *http.Request) {
	reg := h.svc.Events()
	out := make([]EventTypeResponse, 0, reg.Len())
	for _, name := range reg.Names() {
		class, ok := reg.Get(name)
		if !ok {
			continue
		}
		deps := class.Dependencies
		if deps == nil {
			deps = []string{}
		}
		out = append(out, EventTypeResponse{
			Name:         class.Name,
			Description:  class.Description,
			Dependencies: deps,
			Schema:       class.Document(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"event_types": out})
}

// ListModules handles GET /modules.
func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	graph, err := h.svc.Describe()
	if err != nil {
		writeError(w, err)
		return
	}
	order := h.svc.Order()
	if order == nil {
		order = []string{}
	}
	writeJSON(w, http.StatusOK, ModulesResponse{
		State:   h.svc.State().String(),
		Modules: h.svc.Modules(),
		Order:   order,
		Graph:   graph,
	})
}

// ListJournal handles GET /journal: persisted events, newest first,
// optionally filtered by the event query and bounded by limit.
func (h *Handler) ListJournal(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, fault.NotFound("journal is not enabled"))
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if limit < 0 {
		limit = 0
	}
	entries, err := h.journal.Entries(r.Context(), r.URL.Query().Get("event"), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("journal listing failed")
		writeError(w, err)
		return
	}
	total, err := h.journal.Count(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []sqlite.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   total,
	})
}

// Health handles GET /health. It reports 503 until the service is running.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	state := h.svc.State()
	status := http.StatusOK
	label := "ok"
	if state != service.StateRunning {
		status = http.StatusServiceUnavailable
		label = "unavailable"
	}
	writeJSON(w, status, map[string]string{
		"status": label,
		"state":  state.String(),
	})
}

// limitParam returns the limit query value, or -1 when absent.
func limitParam(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return -1, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fault.BadRequest("limit must be a non-negative integer")
	}
	return n, nil
}

func decodePayload(r *http.Request) (map[string]any, error) {
	if r.Body == nil {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, fault.Wrap(fault.KindBadRequest, err, "request body must be a JSON object")
	}
	if payload == nil {
		return map[string]any{}, nil
	}
	return payload, nil
}
