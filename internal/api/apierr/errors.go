package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	SignupIDs []string `json:"signup_ids,omitempty"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Error codes
const (
	CodeValidation    = "validation_error"
	CodeUnauthorized  = "unauthorized"
	CodeForbidden     = "forbidden"
	CodeNotFound      = "not_found"
	CodeConflict      = "conflict"
	CodeInternalError = "internal_error"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var ve *model.ValidationError
	if errors.As(err, &ve) {
		ids := make([]string, len(ve.SignupIDs))
		for i, id := range ve.SignupIDs {
			ids[i] = string(id)
		}
		return &httpError{http.StatusBadRequest, APIError{CodeValidation, ve.Reason, ids}}
	}

	switch {
	case errors.Is(err, model.ErrValidation), errors.Is(err, auth.ErrInvalidRole):
		return &httpError{http.StatusBadRequest, APIError{Code: CodeValidation, Message: err.Error()}}

	case errors.Is(err, model.ErrForbidden):
		return &httpError{http.StatusForbidden, APIError{Code: CodeForbidden, Message: "Not allowed to manage this event"}}

	case errors.Is(err, model.ErrEventNotFound):
		return &httpError{http.StatusNotFound, APIError{Code: CodeNotFound, Message: "Event not found"}}
	case errors.Is(err, model.ErrSignupNotFound):
		return &httpError{http.StatusNotFound, APIError{Code: CodeNotFound, Message: "Signup not found"}}
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{Code: CodeNotFound, Message: "Player not found"}}
	case errors.Is(err, model.ErrAccountNotFound):
		return &httpError{http.StatusNotFound, APIError{Code: CodeNotFound, Message: "Account not found"}}

	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: "Invalid username or password"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: "Invalid or expired session"}}

	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{Code: CodeConflict, Message: "Username already exists"}}
	case errors.Is(err, model.ErrConflict):
		return &httpError{http.StatusConflict, APIError{Code: CodeConflict, Message: "Resource already exists"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
	}
}

// NewValidationError creates a validation error for a malformed request
func NewValidationError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{Code: CodeValidation, Message: message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: "Authentication required"}}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) error {
	return &httpError{http.StatusNotFound, APIError{Code: CodeNotFound, Message: message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
}
