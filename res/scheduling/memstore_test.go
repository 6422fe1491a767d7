package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"pawsitter-api/res/materializer"
	"pawsitter-api/res/store"
)

// memStore is an in-memory store.Store with the same uniqueness and
// status-guard semantics as the postgresql implementation.
type memStore struct {
	mu       sync.Mutex
	series   map[string]*store.RecurringSeries
	batches  map[string]*store.RecurringBatch
	bookings map[string]*store.Booking
}

func newMemStore() *memStore {
	return &memStore{
		series:   make(map[string]*store.RecurringSeries),
		batches:  make(map[string]*store.RecurringBatch),
		bookings: make(map[string]*store.Booking),
	}
}

func (m *memStore) Series() store.SeriesStore    { return &memSeries{m} }
func (m *memStore) Batches() store.BatchStore    { return &memBatches{m} }
func (m *memStore) Bookings() store.BookingStore { return &memBookings{m} }
func (m *memStore) GetDB() interface{}           { return nil }

func copySeries(s *store.RecurringSeries) *store.RecurringSeries {
	c := *s
	c.PreferredDays = append([]time.Weekday(nil), s.PreferredDays...)
	c.DaySchedules = append([]store.DaySchedule(nil), s.DaySchedules...)
	c.Pets = append([]string(nil), s.Pets...)
	return &c
}

func copyBatch(b *store.RecurringBatch) *store.RecurringBatch {
	c := *b
	c.Visits = append([]store.RecurringBatchVisit(nil), b.Visits...)
	return &c
}

type memSeries struct{ s *memStore }

func (ms *memSeries) Create(_ context.Context, series *store.RecurringSeries) error {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	if _, ok := ms.s.series[series.ID]; ok {
		return store.ErrUniqueViolation
	}
	ms.s.series[series.ID] = copySeries(series)
	return nil
}

func (ms *memSeries) Get(_ context.Context, id string) (*store.RecurringSeries, error) {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	series, ok := ms.s.series[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copySeries(series), nil
}

func (ms *memSeries) GetMany(_ context.Context, ids []string) (map[string]*store.RecurringSeries, error) {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	result := make(map[string]*store.RecurringSeries, len(ids))
	for _, id := range ids {
		if series, ok := ms.s.series[id]; ok {
			result[id] = copySeries(series)
		}
	}
	return result, nil
}

func (ms *memSeries) UpdateAssignedSitter(_ context.Context, id, sitterID string) error {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	series, ok := ms.s.series[id]
	if !ok {
		return store.ErrNotFound
	}
	series.AssignedSitterID = &sitterID
	return nil
}

func (ms *memSeries) Cancel(_ context.Context, id string) error {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	series, ok := ms.s.series[id]
	if !ok {
		return store.ErrNotFound
	}
	series.Cancelled = true
	return nil
}

func (ms *memSeries) GetByClient(_ context.Context, clientID string, _ store.SeriesFilters) ([]*store.RecurringSeries, error) {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	var result []*store.RecurringSeries
	for _, series := range ms.s.series {
		if series.ClientID == clientID {
			result = append(result, copySeries(series))
		}
	}
	return result, nil
}

type memBatches struct{ s *memStore }

func (mb *memBatches) CreateForSeries(ctx context.Context, seriesID string, batches []*store.RecurringBatch) ([]*store.RecurringBatch, error) {
	mb.s.mu.Lock()
	defer mb.s.mu.Unlock()
	existing := mb.bySeriesLocked(seriesID)
	if len(existing) > 0 {
		return existing, nil
	}
	for _, batch := range batches {
		mb.s.batches[batch.ID] = copyBatch(batch)
	}
	return mb.bySeriesLocked(seriesID), nil
}

func (mb *memBatches) bySeriesLocked(seriesID string) []*store.RecurringBatch {
	var result []*store.RecurringBatch
	for _, batch := range mb.s.batches {
		if batch.SeriesID == seriesID {
			result = append(result, copyBatch(batch))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BatchIndex < result[j].BatchIndex })
	return result
}

func (mb *memBatches) Get(_ context.Context, id string) (*store.RecurringBatch, error) {
	mb.s.mu.Lock()
	defer mb.s.mu.Unlock()
	batch, ok := mb.s.batches[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyBatch(batch), nil
}

func (mb *memBatches) GetBySeries(_ context.Context, seriesID string) ([]*store.RecurringBatch, error) {
	mb.s.mu.Lock()
	defer mb.s.mu.Unlock()
	return mb.bySeriesLocked(seriesID), nil
}

func (mb *memBatches) GetBySeriesIndex(_ context.Context, seriesID string, batchIndex int) (*store.RecurringBatch, error) {
	mb.s.mu.Lock()
	defer mb.s.mu.Unlock()
	for _, batch := range mb.s.batches {
		if batch.SeriesID == seriesID && batch.BatchIndex == batchIndex {
			return copyBatch(batch), nil
		}
	}
	return nil, store.ErrNotFound
}

func (mb *memBatches) List(_ context.Context, filters store.BatchFilters) ([]*store.RecurringBatch, error) {
	mb.s.mu.Lock()
	defer mb.s.mu.Unlock()
	var result []*store.RecurringBatch
	for _, batch := range mb.s.batches {
		if filters.SeriesID != nil && batch.SeriesID != *filters.SeriesID {
			continue
		}
		if filters.ClientID != nil && batch.ClientID != *filters.ClientID {
			continue
		}
		if filters.Status != nil && batch.Status != *filters.Status {
			continue
		}
		result = append(result, copyBatch(batch))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ScheduledFor.Equal(result[j].ScheduledFor) {
			return result[i].ScheduledFor.Before(result[j].ScheduledFor)
		}
		return result[i].BatchIndex < result[j].BatchIndex
	})
	return result, nil
}

func (mb *memBatches) guardLocked(id string, allowed ...store.BatchStatus) (*store.RecurringBatch, error) {
	batch, ok := mb.s.batches[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for _, status := range allowed {
		if batch.Status == status {
			return batch, nil
		}
	}
	return nil, store.ErrStatusConflict
}

func (mb *memBatches) BeginProcessing(_ context.Context, id string) error {
	mb.s.mu.Lock()
	defer mb.s.mu.Unlock()
	batch, err := mb.guardLocked(id, store.BatchStatusScheduled, store.BatchStatusFailed, store.BatchStatusProcessing)
	if err != nil {
		return err
	}
	batch.Status = store.BatchStatusProcessing
	return nil
}

func (mb *memBatches) Complete(_ context.Context, id string, approvalDate, invoiceDate, invoiceDueDate time.Time) error {
	mb.s.mu.Lock()
	defer mb.s.mu.Unlock()
	batch, err := mb.guardLocked(id, store.BatchStatusProcessing)
	if err != nil {
		return err
	}
	batch.Status = store.BatchStatusCompleted
	batch.ApprovalDate = &approvalDate
	batch.InvoiceDate = &invoiceDate
	batch.InvoiceDueDate = &invoiceDueDate
	batch.MaterializedCount = batch.VisitCount
	batch.PendingCount = 0
	return nil
}

func (mb *memBatches) Fail(_ context.Context, id string, materialized, pending int) error {
	mb.s.mu.Lock()
	defer mb.s.mu.Unlock()
	batch, err := mb.guardLocked(id, store.BatchStatusProcessing)
	if err != nil {
		return err
	}
	batch.Status = store.BatchStatusFailed
	batch.MaterializedCount = materialized
	batch.PendingCount = pending
	return nil
}

func (mb *memBatches) Reject(_ context.Context, id, reason string) error {
	mb.s.mu.Lock()
	defer mb.s.mu.Unlock()
	batch, err := mb.guardLocked(id, store.BatchStatusScheduled)
	if err != nil {
		return err
	}
	batch.Status = store.BatchStatusRejected
	batch.RejectionReason = reason
	return nil
}

func (mb *memBatches) Reschedule(_ context.Context, id string, scheduledFor time.Time, visits []store.RecurringBatchVisit) error {
	mb.s.mu.Lock()
	defer mb.s.mu.Unlock()
	batch, err := mb.guardLocked(id, store.BatchStatusScheduled)
	if err != nil {
		return err
	}
	batch.ScheduledFor = scheduledFor
	batch.Visits = append([]store.RecurringBatchVisit(nil), visits...)
	return nil
}

type memBookings struct{ s *memStore }

func seriesVisitKey(seriesID string, visitNumber int) string {
	return fmt.Sprintf("%s/%d", seriesID, visitNumber)
}

func (mk *memBookings) Create(_ context.Context, booking *store.Booking) error {
	mk.s.mu.Lock()
	defer mk.s.mu.Unlock()
	if booking.RecurringSeriesID != nil && booking.VisitNumber != nil {
		key := seriesVisitKey(*booking.RecurringSeriesID, *booking.VisitNumber)
		for _, existing := range mk.s.bookings {
			if existing.RecurringSeriesID != nil && existing.VisitNumber != nil &&
				seriesVisitKey(*existing.RecurringSeriesID, *existing.VisitNumber) == key {
				return store.ErrUniqueViolation
			}
		}
	}
	c := *booking
	mk.s.bookings[booking.ID] = &c
	return nil
}

func (mk *memBookings) Get(_ context.Context, id string) (*store.Booking, error) {
	mk.s.mu.Lock()
	defer mk.s.mu.Unlock()
	booking, ok := mk.s.bookings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *booking
	return &c, nil
}

func (mk *memBookings) GetBySeriesVisit(_ context.Context, seriesID string, visitNumber int) (*store.Booking, error) {
	mk.s.mu.Lock()
	defer mk.s.mu.Unlock()
	for _, booking := range mk.s.bookings {
		if booking.RecurringSeriesID != nil && *booking.RecurringSeriesID == seriesID &&
			booking.VisitNumber != nil && *booking.VisitNumber == visitNumber {
			c := *booking
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (mk *memBookings) GetBySeries(_ context.Context, seriesID string) ([]*store.Booking, error) {
	mk.s.mu.Lock()
	defer mk.s.mu.Unlock()
	var result []*store.Booking
	for _, booking := range mk.s.bookings {
		if booking.RecurringSeriesID != nil && *booking.RecurringSeriesID == seriesID {
			c := *booking
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return *result[i].VisitNumber < *result[j].VisitNumber })
	return result, nil
}

func (mk *memBookings) GetByClient(_ context.Context, clientID string, _ store.BookingFilters) ([]*store.Booking, error) {
	mk.s.mu.Lock()
	defer mk.s.mu.Unlock()
	var result []*store.Booking
	for _, booking := range mk.s.bookings {
		if booking.ClientID == clientID {
			c := *booking
			result = append(result, &c)
		}
	}
	return result, nil
}

func (mk *memBookings) UpdateStatus(_ context.Context, bookingID string, status store.BookingStatus) error {
	mk.s.mu.Lock()
	defer mk.s.mu.Unlock()
	booking, ok := mk.s.bookings[bookingID]
	if !ok {
		return store.ErrNotFound
	}
	booking.Status = status
	return nil
}

// flakyMaterializer delegates to a real materializer but fails on one
// configured visit number, simulating a booking-side outage partway
// through a batch.
type flakyMaterializer struct {
	inner materializer.Materializer

	mu        sync.Mutex
	failVisit int // 0 disables
}

func (f *flakyMaterializer) setFailVisit(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failVisit = n
}

func (f *flakyMaterializer) MaterializeVisit(ctx context.Context, seriesID string, visitNumber int, scheduledDate time.Time, meta materializer.VisitMetadata) (string, error) {
	f.mu.Lock()
	fail := f.failVisit != 0 && f.failVisit == visitNumber
	f.mu.Unlock()
	if fail {
		return "", errors.New("booking service unavailable")
	}
	return f.inner.MaterializeVisit(ctx, seriesID, visitNumber, scheduledDate, meta)
}

type notifierRecorder struct {
	mu             sync.Mutex
	clientNotified []string // client IDs
	failedBatches  []string // batch IDs
}

func (n *notifierRecorder) NotifyClientBookingCreated(_ context.Context, clientID, _ string, _ int, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.clientNotified = append(n.clientNotified, clientID)
	return nil
}

func (n *notifierRecorder) NotifyBatchFailed(_ context.Context, batchID string, _, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failedBatches = append(n.failedBatches, batchID)
	return nil
}

type publisherRecorder struct {
	mu       sync.Mutex
	approved []string // batch IDs
	rejected []string // batch IDs
	created  []string // batch IDs with bookings published
}

func (p *publisherRecorder) PublishBatchApproved(b *store.RecurringBatch) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.approved = append(p.approved, b.ID)
	return nil
}

func (p *publisherRecorder) PublishBatchRejected(b *store.RecurringBatch) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejected = append(p.rejected, b.ID)
	return nil
}

func (p *publisherRecorder) PublishBookingsCreated(_, batchID string, _ []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, batchID)
	return nil
}
