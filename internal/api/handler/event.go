package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mcoot/teamdraw/internal/api/apierr"
	"github.com/mcoot/teamdraw/internal/api/middleware"
	"github.com/mcoot/teamdraw/internal/api/request"
	"github.com/mcoot/teamdraw/internal/api/response"
	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/services/roster"
)

// RosterService is the event and signup surface used by the handler
type RosterService interface {
	CreateEvent(ctx context.Context, actor *model.Actor, name string, startsAt time.Time) (*model.Event, error)
	GetEvent(ctx context.Context, id model.EventID) (*model.Event, error)
	AddSignup(ctx context.Context, actor *model.Actor, eventID model.EventID, np roster.NewPlayer) (*model.SignupDetail, error)
	SetSignupStatus(ctx context.Context, actor *model.Actor, eventID model.EventID, signupID model.SignupID, status model.SignupStatus) (*model.Signup, error)
	ListSignups(ctx context.Context, actor *model.Actor, eventID model.EventID) ([]model.SignupDetail, error)
}

// EventHandler handles event and signup endpoints
type EventHandler struct {
	roster RosterService
}

// NewEventHandler creates a new event handler
func NewEventHandler(roster RosterService) *EventHandler {
	return &EventHandler{roster: roster}
}

// Create handles POST /api/v1/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetActor(r.Context())

	var req request.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		WriteError(w, apierr.NewValidationError("name is required"))
		return
	}

	event, err := h.roster.CreateEvent(r.Context(), actor, req.Name, req.StartsAt)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, response.EventFromModel(event))
}

// Get handles GET /api/v1/events/{eventId}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.roster.GetEvent(r.Context(), eventIDVar(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.EventFromModel(event))
}

// AddSignup handles POST /api/v1/events/{eventId}/signups
func (h *EventHandler) AddSignup(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetActor(r.Context())

	var req request.AddSignupRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	detail, err := h.roster.AddSignup(r.Context(), actor, eventIDVar(r), roster.NewPlayer{
		DisplayName: req.DisplayName,
		Position:    model.Position(req.Position),
		SkillRating: req.SkillRating,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, response.SignupFromModel(detail))
}

// ListSignups handles GET /api/v1/events/{eventId}/signups
func (h *EventHandler) ListSignups(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetActor(r.Context())

	details, err := h.roster.ListSignups(r.Context(), actor, eventIDVar(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := response.SignupList{Signups: make([]response.Signup, len(details))}
	for i := range details {
		resp.Signups[i] = response.SignupFromModel(&details[i])
	}
	response.JSON(w, http.StatusOK, resp)
}

// Confirm handles POST /api/v1/events/{eventId}/signups/{signupId}/confirm
func (h *EventHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, model.SignupConfirmed)
}

// Withdraw handles POST /api/v1/events/{eventId}/signups/{signupId}/withdraw
func (h *EventHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, model.SignupWithdrawn)
}

func (h *EventHandler) setStatus(w http.ResponseWriter, r *http.Request, status model.SignupStatus) {
	actor := middleware.MustGetActor(r.Context())

	signup, err := h.roster.SetSignupStatus(r.Context(), actor, eventIDVar(r), signupIDVar(r), status)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SignupStatus{
		ID:      string(signup.ID),
		EventID: string(signup.EventID),
		Status:  string(signup.Status),
	})
}
