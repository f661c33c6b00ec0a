package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/monmlabs/monm-server/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service sentinels to HTTP statuses. Anything
// unmapped is a 500 and gets logged with the request path by the caller's
// logging middleware.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, service.ErrForwardNotGranted):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrGone):
		writeError(w, http.StatusGone, "Content has been disabled by its owner")
	case errors.Is(err, service.ErrPayloadTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrSelfRequest),
		errors.Is(err, service.ErrRequestPending),
		errors.Is(err, service.ErrInvalidPayload),
		errors.Is(err, service.ErrSourceURLRequired),
		errors.Is(err, service.ErrParticipantsRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
