package http

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"pawsitter-api/res/scheduling"
	"pawsitter-api/res/store"

	"github.com/gorilla/mux"
)

type SeriesHandler struct {
	Logger       *log.Logger
	Store        store.Store
	Orchestrator *scheduling.Orchestrator
}

type daySchedulePayload struct {
	Weekday    int      `json:"weekday"`
	Enabled    bool     `json:"enabled"`
	VisitTimes []string `json:"visitTimes"`
}

type createSeriesRequest struct {
	ClientID            string               `json:"clientId"`
	ServiceType         string               `json:"serviceType"`
	NumberOfVisits      int                  `json:"numberOfVisits"`
	Frequency           string               `json:"frequency"`
	StartDate           string               `json:"startDate"` // "2006-01-02"
	PreferredTime       string               `json:"preferredTime"`
	PreferredDays       []int                `json:"preferredDays"`
	VisitsPerDay        int                  `json:"visitsPerDay"`
	DaySchedules        []daySchedulePayload `json:"daySchedules"`
	DurationMinutes     int                  `json:"durationMinutes"`
	BasePrice           int                  `json:"basePrice"`
	Pets                []string             `json:"pets"`
	PreferredSitterID   *string              `json:"preferredSitterId"`
	SpecialInstructions string               `json:"specialInstructions"`
	Address             string               `json:"address"`
	TimeZone            string               `json:"timeZone"`
}

type createSeriesResponse struct {
	SeriesID string           `json:"seriesId"`
	Batches  []*batchResponse `json:"batches"`
}

func (sh *SeriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, sh.Logger, &scheduling.ValidationError{Field: "body", Reason: "invalid request body"})
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		respondError(w, sh.Logger, &scheduling.ValidationError{Field: "startDate", Reason: "expected YYYY-MM-DD"})
		return
	}

	preferredDays := make([]time.Weekday, len(req.PreferredDays))
	for i, d := range req.PreferredDays {
		preferredDays[i] = time.Weekday(d)
	}
	daySchedules := make([]store.DaySchedule, len(req.DaySchedules))
	for i, ds := range req.DaySchedules {
		daySchedules[i] = store.DaySchedule{
			Weekday:    time.Weekday(ds.Weekday),
			Enabled:    ds.Enabled,
			VisitTimes: ds.VisitTimes,
		}
	}

	series := &store.RecurringSeries{
		ClientID:            req.ClientID,
		ServiceType:         store.ServiceType(req.ServiceType),
		NumberOfVisits:      req.NumberOfVisits,
		Frequency:           store.Frequency(req.Frequency),
		StartDate:           startDate,
		PreferredTime:       req.PreferredTime,
		PreferredDays:       preferredDays,
		VisitsPerDay:        req.VisitsPerDay,
		DaySchedules:        daySchedules,
		DurationMinutes:     req.DurationMinutes,
		BasePrice:           req.BasePrice,
		Pets:                req.Pets,
		PreferredSitterID:   req.PreferredSitterID,
		SpecialInstructions: req.SpecialInstructions,
		Address:             req.Address,
		TimeZone:            req.TimeZone,
	}

	batches, err := sh.Orchestrator.CreateSeries(r.Context(), series)
	if err != nil {
		respondError(w, sh.Logger, err)
		return
	}

	resp := createSeriesResponse{SeriesID: series.ID}
	for _, b := range batches {
		resp.Batches = append(resp.Batches, batchToResponse(b, nil))
	}
	respondJSON(w, sh.Logger, http.StatusCreated, resp)
}

func (sh *SeriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	series, err := sh.Store.Series().Get(r.Context(), id)
	if err != nil {
		respondError(w, sh.Logger, err)
		return
	}
	respondJSON(w, sh.Logger, http.StatusOK, series)
}

type assignSitterRequest struct {
	SitterID string `json:"sitterId"`
}

func (sh *SeriesHandler) AssignSitter(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req assignSitterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SitterID == "" {
		respondError(w, sh.Logger, &scheduling.ValidationError{Field: "sitterId", Reason: "required"})
		return
	}

	if err := sh.Store.Series().UpdateAssignedSitter(r.Context(), id, req.SitterID); err != nil {
		respondError(w, sh.Logger, err)
		return
	}
	respondJSON(w, sh.Logger, http.StatusOK, map[string]string{"status": "sitter_assigned"})
}

// Cancel soft-cancels the series. Pending batches are untouched: each one
// still needs an explicit per-batch rejection.
func (sh *SeriesHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := sh.Store.Series().Cancel(r.Context(), id); err != nil {
		respondError(w, sh.Logger, err)
		return
	}
	respondJSON(w, sh.Logger, http.StatusOK, map[string]string{"status": "cancelled"})
}
