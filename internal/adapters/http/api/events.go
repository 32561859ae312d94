package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/loadboard/internal/domain/model"
)

const maxEventBody = 64 << 10

// EventDependencies defines the interface for event ingestion dependencies.
type EventDependencies interface {
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)
	Enqueue(ctx context.Context, ev model.RawEvent) bool
	IngestEnabled() bool
}

// EventsHandler handles pushed loading events.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventRequest mirrors the OpenAPI schema for POST /events. Values stay raw
// strings; normalization happens in the refresh cycle.
type eventRequest struct {
	EventID   string `json:"event_id"`
	Timestamp string `json:"timestamp"`
	Product   string `json:"product"`
	Plate     string `json:"plate"`
	Status    string `json:"status"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.Timestamp) == "":
		return errors.New("missing timestamp")
	case strings.TrimSpace(e.Product) == "":
		return errors.New("missing product")
	case strings.TrimSpace(e.Plate) == "":
		return errors.New("missing plate")
	case strings.TrimSpace(e.Status) == "":
		return errors.New("missing status")
	}
	return nil
}

type ackResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if !h.deps.IngestEnabled() {
		writeError(w, http.StatusServiceUnavailable, "ingest_disabled", NewKind(op, ErrIngestDisabled))
		return
	}

	var req eventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	req.EventID = strings.TrimSpace(req.EventID)
	if req.EventID == "" {
		req.EventID = uuid.NewString()
	}

	if h.deps.SeenAndRecord(r.Context(), req.EventID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", EventID: req.EventID, Duplicate: true})
		return
	}

	ev := model.RawEvent{
		EventID:   req.EventID,
		Timestamp: req.Timestamp,
		Product:   req.Product,
		Vehicle:   req.Plate,
		Status:    req.Status,
	}
	if ok := h.deps.Enqueue(r.Context(), ev); !ok {
		// Roll back so the client can retry the same id.
		h.deps.Unrecord(r.Context(), req.EventID)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: req.EventID})
}
