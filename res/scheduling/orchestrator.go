package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"pawsitter-api/res/materializer"
	"pawsitter-api/res/notification"
	"pawsitter-api/res/store"

	"github.com/rs/xid"
)

// Snooze bounds: a batch can be pushed forward between 1 and 14 days per
// call.
const (
	MinSnoozeDays = 1
	MaxSnoozeDays = 14
)

// EventPublisher emits batch lifecycle events. Satisfied by
// events.Publisher; optional.
type EventPublisher interface {
	PublishBatchApproved(b *store.RecurringBatch) error
	PublishBatchRejected(b *store.RecurringBatch) error
	PublishBookingsCreated(seriesID, batchID string, bookingIDs []string) error
}

// Config carries the orchestrator's collaborators and tuning. The timing
// constants are injected here rather than read from globals so a tenant
// configuration lookup can supply them at construction time.
type Config struct {
	Logger        *log.Logger
	Store         store.Store
	Materializer  materializer.Materializer
	Notifications notification.NotificationService // optional, best-effort
	Events        EventPublisher                   // optional, best-effort

	GracePeriodDays int              // defaults to DefaultGracePeriodDays
	MaxSnoozeDays   int              // defaults to MaxSnoozeDays
	WindowDays      int              // defaults to DefaultWindowDays
	Now             func() time.Time // defaults to time.Now
}

// Orchestrator is the façade for series creation and the batch approval
// pipeline. It is the sole writer of batch status and invoice dates.
type Orchestrator struct {
	*Config

	locks *batchLocks
}

func NewOrchestrator(cfg *Config) *Orchestrator {
	if cfg.GracePeriodDays < 1 {
		cfg.GracePeriodDays = DefaultGracePeriodDays
	}
	if cfg.MaxSnoozeDays < 1 {
		cfg.MaxSnoozeDays = MaxSnoozeDays
	}
	if cfg.WindowDays < 1 {
		cfg.WindowDays = DefaultWindowDays
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{Config: cfg, locks: newBatchLocks()}
}

// BatchResult is the per-batch outcome of an orchestrator operation. Bulk
// operations report one result per batch so the caller sees exactly which
// batches succeeded and which failed.
type BatchResult struct {
	BatchID        string
	Status         store.BatchStatus
	ApprovalDate   *time.Time
	InvoiceDueDate *time.Time
	BookingIDs     []string
	Err            error
}

// CreateSeries validates a series definition, expands it into visit slots,
// groups the slots into scheduled batches and persists both. Safe to retry:
// a series whose batches already exist gets the existing set back.
func (o *Orchestrator) CreateSeries(ctx context.Context, series *store.RecurringSeries) ([]*store.RecurringBatch, error) {
	if series.ID == "" {
		series.ID = fmt.Sprintf("series_%s", xid.New().String())
	}

	slots, err := Expand(series)
	if err != nil {
		return nil, err
	}
	batches, err := Group(series, slots, o.WindowDays)
	if err != nil {
		return nil, err
	}

	err = o.Store.Series().Create(ctx, series)
	if err != nil && !errors.Is(err, store.ErrUniqueViolation) {
		return nil, err
	}
	// A unique violation means this is a retried creation; fall through to
	// the idempotent batch persistence, which returns the existing set.

	persisted, err := o.Store.Batches().CreateForSeries(ctx, series.ID, batches)
	if err != nil {
		return nil, err
	}

	o.Logger.Printf("Created series %s with %d visit(s) in %d batch(es)", series.ID, len(slots), len(persisted))
	return persisted, nil
}

// ApproveBatch approves a scheduled batch: it stamps the approval date,
// computes invoice timing and materializes one booking per visit.
// Idempotent: re-approving a completed batch returns the existing bookings;
// re-approving a failed batch resumes past the visits that already went
// through.
func (o *Orchestrator) ApproveBatch(ctx context.Context, batchID string) (*BatchResult, error) {
	lock := o.locks.forBatch(batchID)
	lock.Lock()
	defer lock.Unlock()

	batch, err := o.Store.Batches().Get(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if batch.Status == store.BatchStatusCompleted {
		return o.completedResult(ctx, batch)
	}
	if !canApprove(batch.Status) {
		return nil, &InvalidStateTransition{BatchID: batchID, Current: batch.Status, Requested: "approve"}
	}

	if err := o.Store.Batches().BeginProcessing(ctx, batchID); err != nil {
		return nil, o.translateGuardFailure(ctx, batchID, "approve", err)
	}

	series, err := o.Store.Series().Get(ctx, batch.SeriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to load series %s for batch %s: %w", batch.SeriesID, batchID, err)
	}

	approvalDate := o.Now()
	invoiceDate, invoiceDueDate := ComputeInvoiceTiming(batch, approvalDate, o.GracePeriodDays)

	meta := materializer.VisitMetadata{
		ClientID:            series.ClientID,
		SitterID:            series.AssignedSitterID,
		ServiceType:         series.ServiceType,
		DurationMinutes:     series.DurationMinutes,
		BasePrice:           series.BasePrice,
		Address:             series.Address,
		Pets:                series.Pets,
		SpecialInstructions: series.SpecialInstructions,
		TimeZone:            series.TimeZone,
	}

	bookingIDs := make([]string, 0, len(batch.Visits))
	for _, visit := range batch.Visits {
		bookingID, err := o.Materializer.MaterializeVisit(ctx, batch.SeriesID, visit.VisitNumber, visit.ScheduledDate, meta)
		if err != nil && !errors.Is(err, materializer.ErrAlreadyExists) {
			materialized := len(bookingIDs)
			pending := len(batch.Visits) - materialized
			if failErr := o.Store.Batches().Fail(ctx, batchID, materialized, pending); failErr != nil {
				o.Logger.Printf("Error marking batch %s failed: %s", batchID, failErr)
			}
			o.notifyBatchFailed(ctx, batchID, materialized, pending)
			return nil, &MaterializationFailure{BatchID: batchID, Materialized: materialized, Pending: pending, Err: err}
		}
		bookingIDs = append(bookingIDs, bookingID)
	}

	if err := o.Store.Batches().Complete(ctx, batchID, approvalDate, invoiceDate, invoiceDueDate); err != nil {
		return nil, err
	}

	batch.Status = store.BatchStatusCompleted
	batch.ApprovalDate = &approvalDate
	batch.InvoiceDate = &invoiceDate
	batch.InvoiceDueDate = &invoiceDueDate
	batch.MaterializedCount = len(bookingIDs)
	batch.PendingCount = 0

	o.notifyBookingsCreated(ctx, series, batch, bookingIDs)

	return &BatchResult{
		BatchID:        batchID,
		Status:         store.BatchStatusCompleted,
		ApprovalDate:   &approvalDate,
		InvoiceDueDate: &invoiceDueDate,
		BookingIDs:     bookingIDs,
	}, nil
}

// RejectBatch rejects a scheduled batch with a reason. Terminal: a rejected
// batch is never approved later.
func (o *Orchestrator) RejectBatch(ctx context.Context, batchID, reason string) (*BatchResult, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, &ValidationError{Field: "reason", Reason: "rejection requires a non-empty reason"}
	}

	lock := o.locks.forBatch(batchID)
	lock.Lock()
	defer lock.Unlock()

	batch, err := o.Store.Batches().Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !canReject(batch.Status) {
		return nil, &InvalidStateTransition{BatchID: batchID, Current: batch.Status, Requested: "reject"}
	}

	if err := o.Store.Batches().Reject(ctx, batchID, reason); err != nil {
		return nil, o.translateGuardFailure(ctx, batchID, "reject", err)
	}

	batch.Status = store.BatchStatusRejected
	batch.RejectionReason = reason

	if o.Events != nil {
		if err := o.Events.PublishBatchRejected(batch); err != nil {
			o.Logger.Printf("Error publishing batch.rejected for %s: %s", batchID, err)
		}
	}

	return &BatchResult{BatchID: batchID, Status: store.BatchStatusRejected}, nil
}

// SnoozeBatch shifts a scheduled batch's window and every visit in it
// forward by the given number of days. The batch stays scheduled. Fails
// with a ConflictError when the shifted window would overlap the next
// batch's window, leaving both batches unchanged.
func (o *Orchestrator) SnoozeBatch(ctx context.Context, batchID string, days int) (*BatchResult, error) {
	if days < MinSnoozeDays || days > o.MaxSnoozeDays {
		return nil, &ValidationError{
			Field:  "days",
			Reason: fmt.Sprintf("must be between %d and %d", MinSnoozeDays, o.MaxSnoozeDays),
		}
	}

	lock := o.locks.forBatch(batchID)
	lock.Lock()
	defer lock.Unlock()

	batch, err := o.Store.Batches().Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !canSnooze(batch.Status) {
		return nil, &InvalidStateTransition{BatchID: batchID, Current: batch.Status, Requested: "snooze"}
	}

	newStart := batch.ScheduledFor.AddDate(0, 0, days)
	newEnd := newStart.AddDate(0, 0, o.WindowDays)

	next, err := o.Store.Batches().GetBySeriesIndex(ctx, batch.SeriesID, batch.BatchIndex+1)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if next != nil && newEnd.After(next.ScheduledFor) {
		return nil, &ConflictError{
			BatchID:            batchID,
			ConflictingBatchID: next.ID,
			WindowStart:        next.ScheduledFor,
			WindowEnd:          next.WindowEnd(o.WindowDays),
		}
	}

	visits := make([]store.RecurringBatchVisit, len(batch.Visits))
	for i, v := range batch.Visits {
		visits[i] = store.RecurringBatchVisit{
			VisitNumber:   v.VisitNumber,
			ScheduledDate: v.ScheduledDate.AddDate(0, 0, days),
		}
	}

	if err := o.Store.Batches().Reschedule(ctx, batchID, newStart, visits); err != nil {
		return nil, o.translateGuardFailure(ctx, batchID, "snooze", err)
	}

	o.Logger.Printf("Snoozed batch %s by %d day(s) to %s", batchID, days, newStart.Format("2006-01-02"))
	return &BatchResult{BatchID: batchID, Status: store.BatchStatusScheduled}, nil
}

// BulkApprove applies ApproveBatch to each batch independently and in
// parallel. One batch failing does not roll back the others; the caller
// receives one result per batch, in input order.
func (o *Orchestrator) BulkApprove(ctx context.Context, batchIDs []string) []*BatchResult {
	results := make([]*BatchResult, len(batchIDs))

	var wg sync.WaitGroup
	for i, batchID := range batchIDs {
		wg.Add(1)
		go func(i int, batchID string) {
			defer wg.Done()
			result, err := o.ApproveBatch(ctx, batchID)
			if err != nil {
				result = &BatchResult{BatchID: batchID, Err: err}
			}
			results[i] = result
		}(i, batchID)
	}
	wg.Wait()

	return results
}

// ListBatches retrieves batches for review screens.
func (o *Orchestrator) ListBatches(ctx context.Context, filters store.BatchFilters) ([]*store.RecurringBatch, error) {
	return o.Store.Batches().List(ctx, filters)
}

// GetBatch retrieves a single batch.
func (o *Orchestrator) GetBatch(ctx context.Context, batchID string) (*store.RecurringBatch, error) {
	return o.Store.Batches().Get(ctx, batchID)
}

// completedResult rebuilds the result of an earlier successful approval:
// the same booking set, no new writes.
func (o *Orchestrator) completedResult(ctx context.Context, batch *store.RecurringBatch) (*BatchResult, error) {
	bookingIDs := make([]string, 0, len(batch.Visits))
	for _, visit := range batch.Visits {
		booking, err := o.Store.Bookings().GetBySeriesVisit(ctx, batch.SeriesID, visit.VisitNumber)
		if err != nil {
			return nil, fmt.Errorf("completed batch %s is missing booking for visit %d: %w", batch.ID, visit.VisitNumber, err)
		}
		bookingIDs = append(bookingIDs, booking.ID)
	}

	return &BatchResult{
		BatchID:        batch.ID,
		Status:         store.BatchStatusCompleted,
		ApprovalDate:   batch.ApprovalDate,
		InvoiceDueDate: batch.InvoiceDueDate,
		BookingIDs:     bookingIDs,
	}, nil
}

// translateGuardFailure maps a store-level status-guard rejection back into
// the state-machine error taxonomy. The guard only fires when another
// writer (a concurrent process) moved the batch between our read and write.
func (o *Orchestrator) translateGuardFailure(ctx context.Context, batchID, requested string, err error) error {
	if !errors.Is(err, store.ErrStatusConflict) {
		return err
	}
	current, getErr := o.Store.Batches().Get(ctx, batchID)
	if getErr != nil {
		return err
	}
	return &InvalidStateTransition{BatchID: batchID, Current: current.Status, Requested: requested}
}

func (o *Orchestrator) notifyBatchFailed(ctx context.Context, batchID string, materialized, pending int) {
	if o.Notifications == nil {
		return
	}
	if err := o.Notifications.NotifyBatchFailed(ctx, batchID, materialized, pending); err != nil {
		o.Logger.Printf("Error sending batch-failed alert for %s: %s", batchID, err)
	}
}

func (o *Orchestrator) notifyBookingsCreated(ctx context.Context, series *store.RecurringSeries, batch *store.RecurringBatch, bookingIDs []string) {
	if o.Notifications != nil {
		firstVisit := batch.ScheduledFor
		if len(batch.Visits) > 0 {
			firstVisit = batch.Visits[0].ScheduledDate
		}
		if err := o.Notifications.NotifyClientBookingCreated(ctx, series.ClientID, series.ID, len(bookingIDs), firstVisit); err != nil {
			o.Logger.Printf("Error notifying client %s about batch %s: %s", series.ClientID, batch.ID, err)
		}
	}

	if o.Events != nil {
		if err := o.Events.PublishBatchApproved(batch); err != nil {
			o.Logger.Printf("Error publishing batch.approved for %s: %s", batch.ID, err)
		}
		if err := o.Events.PublishBookingsCreated(series.ID, batch.ID, bookingIDs); err != nil {
			o.Logger.Printf("Error publishing booking.created for %s: %s", batch.ID, err)
		}
	}
}
