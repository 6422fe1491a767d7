package store

import (
	"context"
	"time"
)

// BatchStatus represents the lifecycle state of a recurring batch
type BatchStatus string

const (
	BatchStatusScheduled  BatchStatus = "scheduled"  // Initial state, awaiting admin review
	BatchStatusProcessing BatchStatus = "processing" // Approval in flight, bookings being materialized
	BatchStatusCompleted  BatchStatus = "completed"  // Approved, all bookings materialized
	BatchStatusRejected   BatchStatus = "rejected"   // Rejected by admin, never approved later
	BatchStatusFailed     BatchStatus = "failed"     // Materialization failed partway, retryable
)

// RecurringBatchVisit is one dated visit inside a batch. Visits never exist
// independently of their batch.
type RecurringBatchVisit struct {
	VisitNumber   int       `json:"visitNumber"`
	ScheduledDate time.Time `json:"scheduledDate"`
}

// RecurringBatch is the unit of administrative review and billing: a window
// (default one calendar week) of visits from a series, approved or rejected
// as a whole. Batches are created in bulk at series creation and never
// deleted; they are retained for audit after reaching a terminal state.
type RecurringBatch struct {
	ID       string
	SeriesID string
	ClientID string

	ServiceType ServiceType
	BatchIndex  int // 0-based position within the series
	VisitCount  int

	Status          BatchStatus
	RejectionReason string

	// ScheduledFor is the window's start boundary (e.g., the Monday of the
	// covered week), not the first visit's date.
	ScheduledFor time.Time
	TimeZone     string

	// Set on approval, recomputed on every approval attempt.
	ApprovalDate   *time.Time
	InvoiceDate    *time.Time
	InvoiceDueDate *time.Time

	Visits []RecurringBatchVisit

	// Partial-failure bookkeeping: how many visits were materialized before
	// a failed approval stopped, so a retry can resume.
	MaterializedCount int
	PendingCount      int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// WindowEnd returns the exclusive end of the batch's scheduling window.
func (b *RecurringBatch) WindowEnd(windowDays int) time.Time {
	return b.ScheduledFor.AddDate(0, 0, windowDays)
}

// LastVisitDate returns the scheduled date of the batch's final visit.
func (b *RecurringBatch) LastVisitDate() time.Time {
	var last time.Time
	for _, v := range b.Visits {
		if v.ScheduledDate.After(last) {
			last = v.ScheduledDate
		}
	}
	return last
}

// IsTerminal reports whether the batch has reached a state it never leaves.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusRejected || s == BatchStatusFailed
}

// BatchStore defines the data access interface for recurring batches.
// Status-mutating operations carry their own WHERE-status guard so a lost
// race surfaces as zero rows affected instead of a silent overwrite.
type BatchStore interface {
	// CreateForSeries persists the batches for a series atomically. If any
	// batches already exist for the series the call is a no-op returning the
	// existing set, so a retried series creation cannot duplicate batches.
	CreateForSeries(ctx context.Context, seriesID string, batches []*RecurringBatch) ([]*RecurringBatch, error)

	// Get retrieves a batch by ID
	Get(ctx context.Context, id string) (*RecurringBatch, error)

	// GetBySeries retrieves all batches of a series ordered by batch index
	GetBySeries(ctx context.Context, seriesID string) ([]*RecurringBatch, error)

	// GetBySeriesIndex retrieves one batch by its position within the series
	GetBySeriesIndex(ctx context.Context, seriesID string, batchIndex int) (*RecurringBatch, error)

	// List retrieves batches with filters (for admin review screens)
	List(ctx context.Context, filters BatchFilters) ([]*RecurringBatch, error)

	// BeginProcessing moves a batch into processing. Only batches in
	// scheduled, failed or processing state qualify (failed/processing cover
	// the retry and crash-resume paths).
	BeginProcessing(ctx context.Context, id string) error

	// Complete marks a processing batch completed with its invoice timing
	Complete(ctx context.Context, id string, approvalDate, invoiceDate, invoiceDueDate time.Time) error

	// Fail marks a processing batch failed, recording how many visits were
	// materialized and how many remain
	Fail(ctx context.Context, id string, materialized, pending int) error

	// Reject marks a scheduled batch rejected with a reason
	Reject(ctx context.Context, id, reason string) error

	// Reschedule shifts a scheduled batch's window and visit dates.
	// Rejected for batches that have left the scheduled state.
	Reschedule(ctx context.Context, id string, scheduledFor time.Time, visits []RecurringBatchVisit) error
}

// BatchFilters contains filter options for listing batches
type BatchFilters struct {
	SeriesID       *string
	ClientID       *string
	Status         *BatchStatus
	ScheduledAfter *time.Time
	ScheduledUntil *time.Time
	Limit          int
	Offset         int
	OrderBy        string // e.g., "scheduled_for ASC"
}
