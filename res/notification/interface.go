package notification

import (
	"context"
	"time"
)

// NotificationService defines the interface for notification operations.
// All notifications are best-effort: a failure here must never fail the
// operation that triggered it.
type NotificationService interface {
	// NotifyClientBookingCreated tells a client their recurring visits were
	// approved and booked
	NotifyClientBookingCreated(ctx context.Context, clientID, seriesID string, bookingCount int, firstVisit time.Time) error
	// NotifyBatchFailed alerts operations that a batch approval failed
	// partway through materialization
	NotifyBatchFailed(ctx context.Context, batchID string, materialized, pending int) error
}
