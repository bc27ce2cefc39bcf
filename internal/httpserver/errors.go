package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"communitychat/internal/apperr"
)

// errorBody is the uniform error response shape.
type errorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps an application error to its status code and writes the
// uniform error body. Upstream error messages pass through verbatim.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := err.Error()

	var ae *apperr.Error
	if errors.As(err, &ae) {
		msg = ae.Message
		switch ae.Code {
		case apperr.CodeUnauthenticated:
			status = http.StatusUnauthorized
		case apperr.CodePermissionDenied:
			status = http.StatusForbidden
		case apperr.CodeInvalidArgument:
			status = http.StatusBadRequest
		case apperr.CodeNotFound:
			status = http.StatusNotFound
		}
	}

	writeJSON(w, status, errorBody{StatusCode: status, Message: msg})
}
