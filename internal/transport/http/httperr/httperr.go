// Package httperr writes service errors as JSON error envelopes.
package httperr

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/idempotent-order/internal/service/apperr"
)

// Body is the error envelope returned to clients.
type Body struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalid:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Write sends err to the client. Internal errors are reported with their
// code and message only; the wrapped cause never leaves the process.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	body := Body{
		Error: "internal error",
		Code:  "internal_error",
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		body.Error = appErr.Message
		body.Code = appErr.Code
	}

	status := StatusOf(apperr.KindOf(err))
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "code", body.Code, "error", err)
	}

	WriteJSON(w, r, status, body)
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Error sending response", "error", err)
	}
}
