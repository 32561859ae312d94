package api

import (
	"context"
	"net/http"
	"time"

	service "github.com/okian/loadboard/internal/app"
)

// RefreshDependencies runs a refresh cycle on demand.
type RefreshDependencies interface {
	Refresh(ctx context.Context, force bool) (*service.Snapshot, error)
}

// RefreshHandler handles manual refresh requests.
type RefreshHandler struct {
	deps RefreshDependencies
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps RefreshDependencies) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

type refreshResponse struct {
	SnapshotID string              `json:"snapshot_id"`
	BuiltAt    time.Time           `json:"built_at"`
	FetchedAt  time.Time           `json:"fetched_at"`
	Records    int                 `json:"records"`
	Report     service.BuildReport `json:"report"`
}

// HandleRefresh handles POST /refresh. It drops the cached feed and
// rebuilds, answering with the new snapshot's metadata.
func (h *RefreshHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	snap, err := h.deps.Refresh(r.Context(), true)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		SnapshotID: snap.ID,
		BuiltAt:    snap.BuiltAt,
		FetchedAt:  snap.FetchedAt,
		Records:    len(snap.Rows),
		Report:     snap.Report,
	})
}
