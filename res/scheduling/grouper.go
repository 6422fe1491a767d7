package scheduling

import (
	"fmt"
	"math"
	"time"

	"pawsitter-api/res/store"

	"github.com/rs/xid"
)

// DefaultWindowDays is the scheduling window a batch covers: one calendar
// week.
const DefaultWindowDays = 7

// Group partitions a series' visit slots into contiguous windows of
// windowDays calendar days measured from the first slot's date. Each
// non-empty window becomes one batch in scheduled state; a batch's
// ScheduledFor is the window's start boundary, not its first visit's date,
// so batches stay comparable even when the first visit lands mid-window.
// Approval and invoice dates are left unset until approval.
func Group(series *store.RecurringSeries, slots []VisitSlot, windowDays int) ([]*store.RecurringBatch, error) {
	if windowDays < 1 {
		return nil, &ValidationError{Field: "windowDays", Reason: "must be at least 1"}
	}
	if len(slots) == 0 {
		return nil, &ValidationError{Field: "visitSlots", Reason: "nothing to group"}
	}

	loc := time.UTC
	if series.TimeZone != "" {
		var err error
		loc, err = time.LoadLocation(series.TimeZone)
		if err != nil {
			return nil, &ValidationError{Field: "timeZone", Reason: fmt.Sprintf("unknown timezone %q", series.TimeZone)}
		}
	}

	firstDay := startOfDay(slots[0].ScheduledDate.In(loc), loc)

	var batches []*store.RecurringBatch
	var current *store.RecurringBatch
	currentWindow := -1

	for _, slot := range slots {
		day := startOfDay(slot.ScheduledDate.In(loc), loc)
		window := calendarDaysBetween(firstDay, day) / windowDays

		if window != currentWindow {
			current = &store.RecurringBatch{
				ID:           fmt.Sprintf("batch_%s", xid.New().String()),
				SeriesID:     series.ID,
				ClientID:     series.ClientID,
				ServiceType:  series.ServiceType,
				BatchIndex:   len(batches),
				Status:       store.BatchStatusScheduled,
				ScheduledFor: firstDay.AddDate(0, 0, window*windowDays),
				TimeZone:     series.TimeZone,
			}
			batches = append(batches, current)
			currentWindow = window
		}

		current.Visits = append(current.Visits, store.RecurringBatchVisit{
			VisitNumber:   slot.VisitNumber,
			ScheduledDate: slot.ScheduledDate,
		})
		current.VisitCount = len(current.Visits)
		current.PendingCount = len(current.Visits)
	}

	return batches, nil
}

// calendarDaysBetween counts calendar days from a to b (both at midnight in
// the same location). Rounding absorbs the 23/25-hour days around
// daylight-saving transitions.
func calendarDaysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}
