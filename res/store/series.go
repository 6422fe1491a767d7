package store

import (
	"context"
	"time"
)

// Frequency represents how often a recurring series repeats
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// DaySchedule configures the visits for a single weekday of a weekly series.
// When a series carries a non-empty day schedule list it takes precedence
// over PreferredDays/VisitsPerDay.
type DaySchedule struct {
	Weekday    time.Weekday
	Enabled    bool
	VisitTimes []string // "HH:MM", ascending
}

// RecurringSeries represents an agreement to perform repeated visits
// (e.g., dog walking 3x/week for 12 weeks). Immutable after creation
// except for the assigned sitter and soft cancellation.
type RecurringSeries struct {
	ID       string
	ClientID string

	// Service Details
	ServiceType     ServiceType
	NumberOfVisits  int
	Frequency       Frequency
	DurationMinutes int
	BasePrice       int // Price per visit in bani

	// Scheduling
	StartDate     time.Time // Date portion, client-local
	PreferredTime string    // e.g., "09:00"
	PreferredDays []time.Weekday
	VisitsPerDay  int
	DaySchedules  []DaySchedule // Takes precedence when non-empty
	TimeZone      string        // IANA identifier, e.g., "Europe/Bucharest"

	// Visit Context
	Pets                []string
	PreferredSitterID   *string
	AssignedSitterID    *string
	SpecialInstructions string
	Address             string

	// Soft cancellation halts further expansion; existing batches still
	// require per-batch rejection.
	Cancelled bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SeriesStore defines the data access interface for recurring series
type SeriesStore interface {
	// Create creates a new recurring series
	Create(ctx context.Context, series *RecurringSeries) error

	// Get retrieves a series by ID
	Get(ctx context.Context, id string) (*RecurringSeries, error)

	// GetMany retrieves multiple series at once, keyed by ID.
	// Missing IDs are absent from the result, not an error.
	GetMany(ctx context.Context, ids []string) (map[string]*RecurringSeries, error)

	// UpdateAssignedSitter updates the assigned sitter (the only mutable field)
	UpdateAssignedSitter(ctx context.Context, id, sitterID string) error

	// Cancel soft-cancels a series
	Cancel(ctx context.Context, id string) error

	// GetByClient retrieves all series for a client
	GetByClient(ctx context.Context, clientID string, filters SeriesFilters) ([]*RecurringSeries, error)
}

// SeriesFilters contains filter options for listing series
type SeriesFilters struct {
	ServiceType *ServiceType
	Cancelled   *bool
	Limit       int
	Offset      int
	OrderBy     string // e.g., "start_date DESC"
}
