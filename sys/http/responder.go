package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"pawsitter-api/res/scheduling"
	"pawsitter-api/res/store"
)

type errorResponse struct {
	Error         string          `json:"error"`
	Code          string          `json:"code"`
	CurrentStatus string          `json:"currentStatus,omitempty"`
	Conflict      *conflictDetail `json:"conflict,omitempty"`
}

// conflictDetail carries the conflicting batch's window so the caller can
// choose a smaller snooze buffer.
type conflictDetail struct {
	BatchID     string    `json:"batchId"`
	WindowStart time.Time `json:"windowStart"`
	WindowEnd   time.Time `json:"windowEnd"`
}

func respondJSON(w http.ResponseWriter, logger *log.Logger, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Printf("Error encoding response: %s", err)
	}
}

// errorCode names an error's place in the taxonomy for per-batch results.
func errorCode(err error) string {
	var vErr *scheduling.ValidationError
	var stateErr *scheduling.InvalidStateTransition
	var conflictErr *scheduling.ConflictError
	var matErr *scheduling.MaterializationFailure

	switch {
	case errors.As(err, &vErr):
		return "VALIDATION_ERROR"
	case errors.As(err, &stateErr):
		return "INVALID_STATE_TRANSITION"
	case errors.As(err, &conflictErr):
		return "WINDOW_CONFLICT"
	case errors.As(err, &matErr):
		return "MATERIALIZATION_FAILURE"
	case errors.Is(err, store.ErrNotFound):
		return "NOT_FOUND"
	default:
		return "INTERNAL"
	}
}

// respondError maps the scheduling error taxonomy onto HTTP statuses and
// attaches the context (current state, conflicting window) the admin UI
// needs to render a precise message.
func respondError(w http.ResponseWriter, logger *log.Logger, err error) {
	var vErr *scheduling.ValidationError
	var stateErr *scheduling.InvalidStateTransition
	var conflictErr *scheduling.ConflictError
	var matErr *scheduling.MaterializationFailure

	switch {
	case errors.As(err, &vErr):
		respondJSON(w, logger, http.StatusBadRequest, errorResponse{Error: vErr.Error(), Code: "VALIDATION_ERROR"})
	case errors.As(err, &stateErr):
		respondJSON(w, logger, http.StatusConflict, errorResponse{
			Error:         stateErr.Error(),
			Code:          "INVALID_STATE_TRANSITION",
			CurrentStatus: string(stateErr.Current),
		})
	case errors.As(err, &conflictErr):
		respondJSON(w, logger, http.StatusConflict, errorResponse{
			Error: conflictErr.Error(),
			Code:  "WINDOW_CONFLICT",
			Conflict: &conflictDetail{
				BatchID:     conflictErr.ConflictingBatchID,
				WindowStart: conflictErr.WindowStart,
				WindowEnd:   conflictErr.WindowEnd,
			},
		})
	case errors.As(err, &matErr):
		respondJSON(w, logger, http.StatusBadGateway, errorResponse{Error: matErr.Error(), Code: "MATERIALIZATION_FAILURE"})
	case errors.Is(err, store.ErrNotFound):
		respondJSON(w, logger, http.StatusNotFound, errorResponse{Error: "not found", Code: "NOT_FOUND"})
	default:
		logger.Printf("Internal error: %s", err)
		respondJSON(w, logger, http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "INTERNAL"})
	}
}
