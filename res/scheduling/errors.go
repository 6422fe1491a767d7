package scheduling

import (
	"fmt"
	"time"

	"pawsitter-api/res/store"
)

// ValidationError reports bad input. It is the caller's fault and is never
// retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// InvalidStateTransition reports an action attempted on a batch whose
// current state does not permit it.
type InvalidStateTransition struct {
	BatchID   string
	Current   store.BatchStatus
	Requested string // e.g., "approve"
}

func (e *InvalidStateTransition) Error() string {
	return fmt.Sprintf("batch %s is %s and cannot be %sd", e.BatchID, e.Current, e.Requested)
}

// ConflictError reports a snooze that would make a batch's window overlap
// the next batch's window. It carries the conflicting window so the caller
// can pick a smaller buffer.
type ConflictError struct {
	BatchID            string
	ConflictingBatchID string
	WindowStart        time.Time
	WindowEnd          time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("snoozing batch %s would overlap batch %s (window %s to %s)",
		e.BatchID, e.ConflictingBatchID,
		e.WindowStart.Format("2006-01-02"), e.WindowEnd.Format("2006-01-02"))
}

// MaterializationFailure reports an approval that failed partway through
// booking materialization. The batch is left in failed state with the
// counts recorded; re-invoking approve resumes past the visits that were
// already materialized.
type MaterializationFailure struct {
	BatchID      string
	Materialized int
	Pending      int
	Err          error
}

func (e *MaterializationFailure) Error() string {
	return fmt.Sprintf("batch %s: materialized %d visit(s), %d pending: %v",
		e.BatchID, e.Materialized, e.Pending, e.Err)
}

func (e *MaterializationFailure) Unwrap() error { return e.Err }
