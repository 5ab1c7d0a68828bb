package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"spendsense/internal/core"
	"spendsense/internal/log"
	"spendsense/internal/services"
)

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to encode response", log.FieldError, err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	writeJSON(ctx, w, status, errorResponse{Error: msg})
}

// writeServiceError maps domain errors onto status codes. Unknown errors
// are logged and reported as 500 without leaking their text.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{Error: verr.Err.Error(), Field: verr.Field})
	case errors.Is(err, errMalformedBody):
		writeError(ctx, w, http.StatusBadRequest, "malformed request body")
	case errors.Is(err, services.ErrEmptyLedger):
		writeError(ctx, w, http.StatusNotFound, "no expenses recorded")
	case errors.Is(err, services.ErrExportNotEnabled):
		writeError(ctx, w, http.StatusNotImplemented, "sheet export is not configured")
	default:
		log.FromContext(ctx).ErrorContext(ctx, "Request failed", log.FieldError, err)
		writeError(ctx, w, http.StatusInternalServerError, "internal error")
	}
}
