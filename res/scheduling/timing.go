package scheduling

import (
	"time"

	"pawsitter-api/res/store"
)

// DefaultGracePeriodDays is the interval between approval and the invoice
// due date.
const DefaultGracePeriodDays = 3

// ComputeInvoiceTiming derives a batch's invoice dates from its approval
// time. The due date is the approval date plus the grace period, floored to
// the day after the batch's final visit so a client is never invoiced
// before their service window has finished. It is recomputed on every
// approval attempt, never cached, because a snooze moves the floor.
func ComputeInvoiceTiming(batch *store.RecurringBatch, approvalDate time.Time, graceDays int) (invoiceDate, invoiceDueDate time.Time) {
	if graceDays < 1 {
		graceDays = DefaultGracePeriodDays
	}

	invoiceDate = approvalDate
	invoiceDueDate = approvalDate.AddDate(0, 0, graceDays)

	if floor := batch.LastVisitDate().AddDate(0, 0, 1); invoiceDueDate.Before(floor) {
		invoiceDueDate = floor
	}
	return invoiceDate, invoiceDueDate
}
