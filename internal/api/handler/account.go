package handler

import (
	"net/http"

	"github.com/mcoot/teamdraw/internal/api/apierr"
	"github.com/mcoot/teamdraw/internal/api/middleware"
	"github.com/mcoot/teamdraw/internal/api/request"
	"github.com/mcoot/teamdraw/internal/api/response"
	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/services/auth"
)

// AccountHandler handles account endpoints
type AccountHandler struct {
	authService *auth.Service
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(authService *auth.Service) *AccountHandler {
	return &AccountHandler{
		authService: authService,
	}
}

// Register handles POST /api/v1/accounts/register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if req.Username == "" {
		WriteError(w, apierr.NewValidationError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, apierr.NewValidationError("password is required"))
		return
	}
	role := model.Role(req.Role)
	if role == "" {
		role = model.RoleOrganizer
	}

	session, err := h.authService.Register(r.Context(), req.Username, req.Password, req.DisplayName, role)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, response.AuthResponseFromSession(session))
}

// Login handles POST /api/v1/accounts/login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if req.Username == "" || req.Password == "" {
		WriteError(w, apierr.NewValidationError("username and password are required"))
		return
	}

	session, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromSession(session))
}

// Logout handles POST /api/v1/accounts/logout
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := middleware.GetSession(r.Context()); session != nil {
		h.authService.InvalidateSession(session.Token)
	}
	response.NoContent(w)
}

// Me handles GET /api/v1/accounts/me
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if session == nil {
		WriteError(w, apierr.NewUnauthorizedError())
		return
	}
	response.JSON(w, http.StatusOK, response.AccountFromModel(&session.Account))
}
