package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/turtle-soup/internal/engine"
	"github.com/jwebster45206/turtle-soup/pkg/state"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// errBadRequest marks request validation failures.
var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// statusFor maps an engine or state error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, engine.ErrEmptyInput),
		errors.Is(err, state.ErrInvalidTags),
		errors.Is(err, state.ErrInvalidMode):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, state.ErrNoTurnsLeft),
		errors.Is(err, state.ErrNoHintsLeft),
		errors.Is(err, state.ErrCannotSettle),
		errors.Is(err, state.ErrNotActive),
		errors.Is(err, state.ErrNothingToRetry):
		return http.StatusConflict
	case errors.Is(err, engine.ErrUpstream), errors.Is(err, engine.ErrBadPuzzle):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Internal errors are logged and
// hidden from the client.
func fail(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
		msg = "Internal server error"
	}
	writeError(w, logger, status, msg)
}
