package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pawsitter-api/res/scheduling"
	"pawsitter-api/res/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	windowStart := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	windowEnd := windowStart.AddDate(0, 0, 7)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation error",
			err:        &scheduling.ValidationError{Field: "days", Reason: "must be between 1 and 14"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name: "invalid state transition",
			err: &scheduling.InvalidStateTransition{
				BatchID: "batch_1", Current: store.BatchStatusRejected, Requested: "approve",
			},
			wantStatus: http.StatusConflict,
			wantCode:   "INVALID_STATE_TRANSITION",
		},
		{
			name: "window conflict",
			err: &scheduling.ConflictError{
				BatchID: "batch_1", ConflictingBatchID: "batch_2",
				WindowStart: windowStart, WindowEnd: windowEnd,
			},
			wantStatus: http.StatusConflict,
			wantCode:   "WINDOW_CONFLICT",
		},
		{
			name: "materialization failure",
			err: &scheduling.MaterializationFailure{
				BatchID: "batch_1", Materialized: 1, Pending: 1, Err: errors.New("downstream outage"),
			},
			wantStatus: http.StatusBadGateway,
			wantCode:   "MATERIALIZATION_FAILURE",
		},
		{
			name:       "not found",
			err:        store.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "unclassified error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondError(rec, logger, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body errorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestRespondErrorCarriesTransitionContext(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	rec := httptest.NewRecorder()

	respondError(rec, logger, &scheduling.InvalidStateTransition{
		BatchID: "batch_1", Current: store.BatchStatusCompleted, Requested: "snooze",
	})

	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "completed", body.CurrentStatus)
}

func TestRespondErrorCarriesConflictWindow(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	rec := httptest.NewRecorder()
	windowStart := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	respondError(rec, logger, &scheduling.ConflictError{
		BatchID:            "batch_1",
		ConflictingBatchID: "batch_2",
		WindowStart:        windowStart,
		WindowEnd:          windowStart.AddDate(0, 0, 7),
	})

	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.NotNil(t, body.Conflict)
	assert.Equal(t, "batch_2", body.Conflict.BatchID)
	assert.True(t, body.Conflict.WindowStart.Equal(windowStart))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "VALIDATION_ERROR", errorCode(&scheduling.ValidationError{Field: "reason"}))
	assert.Equal(t, "INVALID_STATE_TRANSITION", errorCode(&scheduling.InvalidStateTransition{}))
	assert.Equal(t, "WINDOW_CONFLICT", errorCode(&scheduling.ConflictError{}))
	assert.Equal(t, "MATERIALIZATION_FAILURE", errorCode(&scheduling.MaterializationFailure{Err: errors.New("x")}))
	assert.Equal(t, "NOT_FOUND", errorCode(store.ErrNotFound))
	assert.Equal(t, "INTERNAL", errorCode(errors.New("boom")))
}
