// Package httputil centralizes JSON encoding and error translation for the
// HTTP layer, so every endpoint speaks the same envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"crossrail/pkg/platform/sentinel"
)

// Error carries an HTTP status and a stable machine-readable code alongside
// the human description.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// BadRequest builds a 400 error with the given description.
func BadRequest(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "bad_request", Message: fmt.Sprintf(format, args...)}
}

// Unauthorized builds a 401 error.
func Unauthorized(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: "unauthorized", Message: message}
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorEnvelope struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError translates an error into the JSON error envelope. Internal
// errors omit the description so provider and storage details never leak to
// clients.
func WriteError(w http.ResponseWriter, err error) {
	var httpErr *Error
	if errors.As(err, &httpErr) {
		WriteJSON(w, httpErr.Status, errorEnvelope{Code: httpErr.Code, Description: httpErr.Message})
		return
	}

	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		WriteJSON(w, http.StatusNotFound, errorEnvelope{Code: "not_found", Description: err.Error()})
	case errors.Is(err, sentinel.ErrConflict):
		WriteJSON(w, http.StatusConflict, errorEnvelope{Code: "conflict", Description: err.Error()})
	case errors.Is(err, sentinel.ErrInvalidState):
		WriteJSON(w, http.StatusUnprocessableEntity, errorEnvelope{Code: "invalid_state", Description: err.Error()})
	case errors.Is(err, sentinel.ErrUnavailable):
		WriteJSON(w, http.StatusServiceUnavailable, errorEnvelope{Code: "unavailable"})
	default:
		WriteJSON(w, http.StatusInternalServerError, errorEnvelope{Code: "internal_error"})
	}
}

// DecodeJSON decodes the request body into T, answering a bad_request
// envelope on malformed input. The boolean reports whether decoding
// succeeded.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		WriteError(w, BadRequest("malformed request body: %v", err))
		return v, false
	}
	return v, true
}
