package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/teamdraw/internal/model"
	"github.com/mcoot/teamdraw/internal/services/auth"
)

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", model.NewValidationError("bad batch"), http.StatusBadRequest, CodeValidation},
		{"wrapped validation", fmt.Errorf("draw: %w", model.ErrValidation), http.StatusBadRequest, CodeValidation},
		{"invalid role", auth.ErrInvalidRole, http.StatusBadRequest, CodeValidation},
		{"forbidden", model.ErrForbidden, http.StatusForbidden, CodeForbidden},
		{"event not found", model.ErrEventNotFound, http.StatusNotFound, CodeNotFound},
		{"signup not found", fmt.Errorf("lookup: %w", model.ErrSignupNotFound), http.StatusNotFound, CodeNotFound},
		{"bad credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized, CodeUnauthorized},
		{"bad session", auth.ErrInvalidSession, http.StatusUnauthorized, CodeUnauthorized},
		{"username taken", auth.ErrUsernameExists, http.StatusConflict, CodeConflict},
		{"conflict", model.ErrConflict, http.StatusConflict, CodeConflict},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, CodeInternalError},
		{"explicit", NewValidationError("invalid request body"), http.StatusBadRequest, CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.status, Status(tt.err))
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestValidationErrorNamesSignups(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, fmt.Errorf("assign: %w", model.NewValidationError("signup belongs to another event", "s-9")))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "signup belongs to another event", resp.Error.Message)
	assert.Equal(t, []string{"s-9"}, resp.Error.SignupIDs)
}

func TestInternalErrorHidesDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, errors.New("password=hunter2"))
	assert.NotContains(t, rr.Body.String(), "hunter2")
}
