package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/mcoot/teamdraw/internal/api/apierr"
	"github.com/mcoot/teamdraw/internal/api/response"
	"github.com/mcoot/teamdraw/internal/model"
)

// HealthHandler reports liveness and that storage answers
type HealthHandler struct {
	store EventGetter
}

// EventGetter is any store that can look an event up
type EventGetter interface {
	GetEvent(ctx context.Context, id model.EventID) (*model.Event, error)
}

// NewHealthHandler creates a health handler. A nil store skips the storage probe.
func NewHealthHandler(store EventGetter) *HealthHandler {
	return &HealthHandler{store: store}
}

// Check handles GET /api/v1/health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		// a missing event is the expected answer from a reachable store
		if _, err := h.store.GetEvent(ctx, "health-probe"); err != nil && apierr.Status(err) != http.StatusNotFound {
			response.JSON(w, http.StatusServiceUnavailable, response.Health{Status: "storage unavailable"})
			return
		}
	}
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
