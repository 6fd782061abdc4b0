package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/teamdraw/internal/api/apierr"
	"github.com/mcoot/teamdraw/internal/model"
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// decodeJSON decodes a required request body
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierr.NewValidationError("invalid request body")
	}
	return nil
}

// decodeOptionalJSON decodes a request body that may be empty
func decodeOptionalJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apierr.NewValidationError("invalid request body")
}

func eventIDVar(r *http.Request) model.EventID {
	return model.EventID(mux.Vars(r)["eventId"])
}

func signupIDVar(r *http.Request) model.SignupID {
	return model.SignupID(mux.Vars(r)["signupId"])
}
