package materializer

import (
	"context"
	"errors"
	"time"

	"pawsitter-api/res/store"
)

// ErrAlreadyExists reports that a booking was already materialized for the
// visit. Callers treat it as success: the returned booking ID is valid.
var ErrAlreadyExists = errors.New("materializer: booking already exists for this visit")

// VisitMetadata carries the series-level context stamped onto each
// materialized booking.
type VisitMetadata struct {
	ClientID            string
	SitterID            *string
	ServiceType         store.ServiceType
	DurationMinutes     int
	BasePrice           int
	Address             string
	Pets                []string
	SpecialInstructions string
	TimeZone            string
}

// Materializer converts a visit slot into a persisted, billable booking.
// Materialization is keyed by (seriesID, visitNumber): invoking it twice
// for the same visit yields the same booking, never a duplicate.
type Materializer interface {
	MaterializeVisit(ctx context.Context, seriesID string, visitNumber int, scheduledDate time.Time, meta VisitMetadata) (string, error)
}
