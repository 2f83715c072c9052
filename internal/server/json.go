package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/drawcast/internal/drawday"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeDomainError maps drawday errors onto HTTP statuses. Anything
// unrecognised is logged and reported as a 500.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *drawday.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, drawday.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, drawday.ErrGameNotFound):
		writeError(w, http.StatusNotFound, "game not found")
	case errors.Is(err, drawday.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, drawday.ErrAlreadyPublished):
		writeError(w, http.StatusConflict, "result already published for this game day")
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
