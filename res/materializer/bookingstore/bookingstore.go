package bookingstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"pawsitter-api/res/materializer"
	"pawsitter-api/res/store"

	"github.com/google/uuid"
)

// bookingMaterializer implements the Materializer interface on top of the
// booking store. The unique (series, visit number) index is what makes
// materialization idempotent: a duplicate create loses to the index and is
// resolved to the existing booking.
type bookingMaterializer struct {
	bookings store.BookingStore
	logger   *log.Logger
}

// New creates a store-backed Materializer instance
func New(bookings store.BookingStore, logger *log.Logger) materializer.Materializer {
	return &bookingMaterializer{bookings: bookings, logger: logger}
}

func (m *bookingMaterializer) MaterializeVisit(ctx context.Context, seriesID string, visitNumber int, scheduledDate time.Time, meta materializer.VisitMetadata) (string, error) {
	petsJSON, err := json.Marshal(meta.Pets)
	if err != nil {
		return "", fmt.Errorf("failed to encode pets: %w", err)
	}

	visit := visitNumber
	series := seriesID
	booking := &store.Booking{
		ID:                uuid.New().String(),
		ClientID:          meta.ClientID,
		SitterID:          meta.SitterID,
		ServiceType:       meta.ServiceType,
		DurationMinutes:   meta.DurationMinutes,
		Pets:              string(petsJSON),
		ScheduledDate:     scheduledDate,
		ScheduledTime:     scheduledDate.Format("15:04"),
		TimeZone:          meta.TimeZone,
		Address:           meta.Address,
		BasePrice:         meta.BasePrice,
		Status:            store.BookingStatusPending,
		IsRecurring:       true,
		RecurringSeriesID: &series,
		VisitNumber:       &visit,
		ClientNotes:       meta.SpecialInstructions,
	}

	err = m.bookings.Create(ctx, booking)
	if err == nil {
		return booking.ID, nil
	}
	if !errors.Is(err, store.ErrUniqueViolation) {
		return "", err
	}

	// Lost to the unique index: a previous attempt already materialized
	// this visit. Resolve to the existing booking.
	existing, getErr := m.bookings.GetBySeriesVisit(ctx, seriesID, visitNumber)
	if getErr != nil {
		return "", fmt.Errorf("visit %d of series %s already materialized but could not be loaded: %w", visitNumber, seriesID, getErr)
	}
	m.logger.Printf("Visit %d of series %s already materialized as booking %s", visitNumber, seriesID, existing.ID)
	return existing.ID, materializer.ErrAlreadyExists
}
