package handler

import (
	"net/http"

	"github.com/mcoot/teamdraw/internal/api/middleware"
	"github.com/mcoot/teamdraw/internal/api/request"
	"github.com/mcoot/teamdraw/internal/api/response"
	"github.com/mcoot/teamdraw/internal/services/teams"
)

// TeamHandler handles draw and assignment endpoints
type TeamHandler struct {
	controller teams.ControllerInterface
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(controller teams.ControllerInterface) *TeamHandler {
	return &TeamHandler{controller: controller}
}

// Draw handles POST /api/v1/events/{eventId}/teams/draw.
// Too few players is still a 200 with success=false.
func (h *TeamHandler) Draw(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetActor(r.Context())

	var req request.DrawRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.controller.RunDraw(r.Context(), eventIDVar(r), req.Params(), actor)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.DrawResultFromModel(result))
}

// Set handles POST /api/v1/events/{eventId}/teams
func (h *TeamHandler) Set(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetActor(r.Context())

	var req request.SetAssignmentsRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	rows, err := h.controller.SetManualAssignments(r.Context(), eventIDVar(r), req.Inputs(), actor)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := response.AssignmentList{Assignments: make([]response.Assignment, len(rows))}
	for i, row := range rows {
		resp.Assignments[i] = response.AssignmentFromModel(row)
	}
	response.JSON(w, http.StatusOK, resp)
}

// List handles GET /api/v1/events/{eventId}/teams
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetActor(r.Context())

	details, err := h.controller.ListAssignments(r.Context(), eventIDVar(r), actor)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := response.AssignmentList{Assignments: make([]response.Assignment, len(details))}
	for i := range details {
		resp.Assignments[i] = response.AssignmentDetailFromModel(&details[i])
	}
	response.JSON(w, http.StatusOK, resp)
}

// Audit handles GET /api/v1/events/{eventId}/teams/audit
func (h *TeamHandler) Audit(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetActor(r.Context())

	entries, err := h.controller.ListAuditEntries(r.Context(), eventIDVar(r), actor)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := response.AuditList{Entries: make([]response.AuditEntry, len(entries))}
	for i, e := range entries {
		resp.Entries[i] = response.AuditEntryFromModel(e)
	}
	response.JSON(w, http.StatusOK, resp)
}
