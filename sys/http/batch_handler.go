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

type BatchHandler struct {
	Logger       *log.Logger
	Store        store.Store
	Orchestrator *scheduling.Orchestrator
}

type batchResponse struct {
	ID              string                      `json:"id"`
	SeriesID        string                      `json:"seriesId"`
	ClientID        string                      `json:"clientId"`
	ServiceType     string                      `json:"serviceType"`
	BatchIndex      int                         `json:"batchIndex"`
	VisitCount      int                         `json:"visitCount"`
	Status          string                      `json:"status"`
	RejectionReason string                      `json:"rejectionReason,omitempty"`
	ScheduledFor    time.Time                   `json:"scheduledFor"`
	TimeZone        string                      `json:"timeZone"`
	ApprovalDate    *time.Time                  `json:"approvalDate"`
	InvoiceDate     *time.Time                  `json:"invoiceDate"`
	InvoiceDueDate  *time.Time                  `json:"invoiceDueDate"`
	Visits          []store.RecurringBatchVisit `json:"visits"`
	Series          *seriesSummary              `json:"series,omitempty"`
}

// seriesSummary is the series metadata attached to batches on list views.
type seriesSummary struct {
	ClientID         string  `json:"clientId"`
	ServiceType      string  `json:"serviceType"`
	NumberOfVisits   int     `json:"numberOfVisits"`
	AssignedSitterID *string `json:"assignedSitterId"`
	Cancelled        bool    `json:"cancelled"`
}

func batchToResponse(b *store.RecurringBatch, series *store.RecurringSeries) *batchResponse {
	resp := &batchResponse{
		ID:              b.ID,
		SeriesID:        b.SeriesID,
		ClientID:        b.ClientID,
		ServiceType:     string(b.ServiceType),
		BatchIndex:      b.BatchIndex,
		VisitCount:      b.VisitCount,
		Status:          string(b.Status),
		RejectionReason: b.RejectionReason,
		ScheduledFor:    b.ScheduledFor,
		TimeZone:        b.TimeZone,
		ApprovalDate:    b.ApprovalDate,
		InvoiceDate:     b.InvoiceDate,
		InvoiceDueDate:  b.InvoiceDueDate,
		Visits:          b.Visits,
	}
	if series != nil {
		resp.Series = &seriesSummary{
			ClientID:         series.ClientID,
			ServiceType:      string(series.ServiceType),
			NumberOfVisits:   series.NumberOfVisits,
			AssignedSitterID: series.AssignedSitterID,
			Cancelled:        series.Cancelled,
		}
	}
	return resp
}

type batchResultResponse struct {
	BatchID        string     `json:"batchId"`
	Status         string     `json:"status,omitempty"`
	ApprovalDate   *time.Time `json:"approvalDate,omitempty"`
	InvoiceDueDate *time.Time `json:"invoiceDueDate,omitempty"`
	BookingIDs     []string   `json:"bookingIds,omitempty"`
	Error          string     `json:"error,omitempty"`
	ErrorCode      string     `json:"errorCode,omitempty"`
}

func resultToResponse(result *scheduling.BatchResult) *batchResultResponse {
	resp := &batchResultResponse{BatchID: result.BatchID}
	if result.Err != nil {
		resp.Error = result.Err.Error()
		resp.ErrorCode = errorCode(result.Err)
		return resp
	}
	resp.Status = string(result.Status)
	resp.ApprovalDate = result.ApprovalDate
	resp.InvoiceDueDate = result.InvoiceDueDate
	resp.BookingIDs = result.BookingIDs
	return resp
}

func (bh *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := store.BatchFilters{}
	query := r.URL.Query()

	if seriesID := query.Get("seriesId"); seriesID != "" {
		filters.SeriesID = &seriesID
	}
	if clientID := query.Get("clientId"); clientID != "" {
		filters.ClientID = &clientID
	}
	if status := query.Get("status"); status != "" {
		batchStatus := store.BatchStatus(status)
		filters.Status = &batchStatus
	}

	batches, err := bh.Orchestrator.ListBatches(r.Context(), filters)
	if err != nil {
		respondError(w, bh.Logger, err)
		return
	}

	// One batched lookup for the series metadata of every listed batch.
	seriesIDs := make([]string, 0, len(batches))
	seen := make(map[string]bool, len(batches))
	for _, b := range batches {
		if !seen[b.SeriesID] {
			seen[b.SeriesID] = true
			seriesIDs = append(seriesIDs, b.SeriesID)
		}
	}
	seriesByID, err := bh.Store.Series().GetMany(r.Context(), seriesIDs)
	if err != nil {
		respondError(w, bh.Logger, err)
		return
	}

	resp := make([]*batchResponse, 0, len(batches))
	for _, b := range batches {
		resp = append(resp, batchToResponse(b, seriesByID[b.SeriesID]))
	}
	respondJSON(w, bh.Logger, http.StatusOK, resp)
}

func (bh *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	batch, err := bh.Orchestrator.GetBatch(r.Context(), id)
	if err != nil {
		respondError(w, bh.Logger, err)
		return
	}
	respondJSON(w, bh.Logger, http.StatusOK, batchToResponse(batch, nil))
}

func (bh *BatchHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	result, err := bh.Orchestrator.ApproveBatch(r.Context(), id)
	if err != nil {
		respondError(w, bh.Logger, err)
		return
	}
	respondJSON(w, bh.Logger, http.StatusOK, resultToResponse(result))
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (bh *BatchHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, bh.Logger, &scheduling.ValidationError{Field: "body", Reason: "invalid request body"})
		return
	}

	result, err := bh.Orchestrator.RejectBatch(r.Context(), id, req.Reason)
	if err != nil {
		respondError(w, bh.Logger, err)
		return
	}
	respondJSON(w, bh.Logger, http.StatusOK, resultToResponse(result))
}

type snoozeRequest struct {
	Days int `json:"days"`
}

func (bh *BatchHandler) Snooze(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req snoozeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, bh.Logger, &scheduling.ValidationError{Field: "body", Reason: "invalid request body"})
		return
	}

	result, err := bh.Orchestrator.SnoozeBatch(r.Context(), id, req.Days)
	if err != nil {
		respondError(w, bh.Logger, err)
		return
	}
	respondJSON(w, bh.Logger, http.StatusOK, resultToResponse(result))
}

type bulkApproveRequest struct {
	BatchIDs []string `json:"batchIds"`
}

// BulkApprove reports per-batch outcomes, never a single aggregate
// pass/fail flag: the admin sees exactly which batches went through.
func (bh *BatchHandler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	var req bulkApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, bh.Logger, &scheduling.ValidationError{Field: "body", Reason: "invalid request body"})
		return
	}
	if len(req.BatchIDs) == 0 {
		respondError(w, bh.Logger, &scheduling.ValidationError{Field: "batchIds", Reason: "at least one batch is required"})
		return
	}

	results := bh.Orchestrator.BulkApprove(r.Context(), req.BatchIDs)

	resp := make([]*batchResultResponse, len(results))
	for i, result := range results {
		resp[i] = resultToResponse(result)
	}
	respondJSON(w, bh.Logger, http.StatusOK, resp)
}
