package scheduling

import (
	"strings"
	"testing"
	"time"

	"pawsitter-api/res/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slotsOn(dates ...time.Time) []VisitSlot {
	slots := make([]VisitSlot, len(dates))
	for i, d := range dates {
		slots[i] = VisitSlot{SeriesID: "series_test", VisitNumber: i + 1, ScheduledDate: d}
	}
	return slots
}

func TestGroupWeeklyWindows(t *testing.T) {
	series := weeklySeries(6)
	slots, err := Expand(series)
	require.NoError(t, err)

	batches, err := Group(series, slots, DefaultWindowDays)
	require.NoError(t, err)
	require.Len(t, batches, 3)

	expectedStarts := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	for i, batch := range batches {
		assert.Equal(t, i, batch.BatchIndex)
		assert.Equal(t, store.BatchStatusScheduled, batch.Status)
		assert.Equal(t, "series_test", batch.SeriesID)
		assert.Equal(t, "client_1", batch.ClientID)
		assert.Equal(t, store.ServiceTypeWalk, batch.ServiceType)
		assert.True(t, batch.ScheduledFor.Equal(expectedStarts[i]), "batch %d scheduled for %s, want %s", i, batch.ScheduledFor, expectedStarts[i])
		assert.Len(t, batch.Visits, 2)
		assert.Equal(t, 2, batch.VisitCount)
		assert.Equal(t, 2, batch.PendingCount)
		assert.Equal(t, 0, batch.MaterializedCount)
		assert.Nil(t, batch.ApprovalDate)
		assert.Nil(t, batch.InvoiceDueDate)
		assert.True(t, strings.HasPrefix(batch.ID, "batch_"), "unexpected batch ID %q", batch.ID)
	}
}

func TestGroupCoversEveryVisitExactlyOnce(t *testing.T) {
	series := weeklySeries(13)
	slots, err := Expand(series)
	require.NoError(t, err)

	batches, err := Group(series, slots, DefaultWindowDays)
	require.NoError(t, err)

	seen := make(map[int]int)
	for _, batch := range batches {
		for _, v := range batch.Visits {
			seen[v.VisitNumber]++
		}
	}
	require.Len(t, seen, 13)
	for n := 1; n <= 13; n++ {
		assert.Equal(t, 1, seen[n], "visit %d grouped %d times", n, seen[n])
	}
}

func TestGroupSkipsEmptyWindows(t *testing.T) {
	// Monthly cadence: weeks between visits produce no batch at all, and
	// indices stay sequential across the gaps.
	series := &store.RecurringSeries{
		ID:             "series_test",
		ClientID:       "client_1",
		NumberOfVisits: 3,
		Frequency:      store.FrequencyMonthly,
		StartDate:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	slots, err := Expand(series)
	require.NoError(t, err)

	batches, err := Group(series, slots, DefaultWindowDays)
	require.NoError(t, err)
	require.Len(t, batches, 3)

	for i, batch := range batches {
		assert.Equal(t, i, batch.BatchIndex)
		assert.Len(t, batch.Visits, 1)
	}
	assert.True(t, batches[1].ScheduledFor.After(batches[0].WindowEnd(DefaultWindowDays)) ||
		batches[1].ScheduledFor.Equal(batches[0].WindowEnd(DefaultWindowDays)))
}

func TestGroupAnchorsWindowsToFirstVisit(t *testing.T) {
	series := weeklySeries(3)
	slots := slotsOn(
		time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
	)

	batches, err := Group(series, slots, DefaultWindowDays)
	require.NoError(t, err)
	require.Len(t, batches, 2)

	// The second window starts at the 7-day boundary, not at its first
	// visit's date.
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), batches[1].ScheduledFor)
	assert.Equal(t, 10, batches[1].Visits[0].ScheduledDate.Day())
}

func TestGroupWindowsAreMonotonic(t *testing.T) {
	series := weeklySeries(50)
	slots, err := Expand(series)
	require.NoError(t, err)

	batches, err := Group(series, slots, DefaultWindowDays)
	require.NoError(t, err)
	require.NotEmpty(t, batches)

	for i := 1; i < len(batches); i++ {
		prev, curr := batches[i-1], batches[i]
		assert.Equal(t, prev.BatchIndex+1, curr.BatchIndex)
		assert.True(t, curr.ScheduledFor.Sub(prev.ScheduledFor) >= 7*24*time.Hour-time.Hour,
			"batch %d window starts %s, previous %s", i, curr.ScheduledFor, prev.ScheduledFor)
		assert.Greater(t, curr.Visits[0].VisitNumber, prev.Visits[len(prev.Visits)-1].VisitNumber)
	}
}

func TestGroupValidation(t *testing.T) {
	series := weeklySeries(6)
	slots, err := Expand(series)
	require.NoError(t, err)

	var vErr *ValidationError

	_, err = Group(series, slots, 0)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "windowDays", vErr.Field)

	_, err = Group(series, nil, DefaultWindowDays)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "visitSlots", vErr.Field)
}
