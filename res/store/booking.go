package store

import (
	"context"
	"time"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"     // Initial state, awaiting sitter confirmation
	BookingStatusConfirmed  BookingStatus = "confirmed"   // Sitter confirmed
	BookingStatusInProgress BookingStatus = "in_progress" // Visit is being performed
	BookingStatusCompleted  BookingStatus = "completed"   // Visit completed successfully
	BookingStatusCancelled  BookingStatus = "cancelled"   // Cancelled by client or sitter
)

// Booking represents a single materialized, billable visit. Recurring
// bookings are produced exactly once per visit slot when a batch is
// approved; the (RecurringSeriesID, VisitNumber) pair is unique.
type Booking struct {
	ID       string  `gorm:"primaryKey;size:50;unique"`
	ClientID string  `gorm:"size:50;not null;index:idx_booking_client"`
	SitterID *string `gorm:"size:50;index:idx_booking_sitter"`

	// Service Details
	ServiceType     ServiceType `gorm:"size:20;not null"`
	DurationMinutes int         `gorm:"not null"`
	Pets            string      `gorm:"type:text"` // JSON array of pet identifiers

	// Scheduling
	ScheduledDate time.Time `gorm:"not null;index:idx_booking_date"`
	ScheduledTime string    `gorm:"size:10;not null"` // e.g., "14:00"
	TimeZone      string    `gorm:"size:50;not null"`

	// Address
	Address string `gorm:"type:text"`

	// Pricing (stored at booking time to preserve historical pricing)
	BasePrice int `gorm:"not null"` // Price in bani at time of materialization

	// Status
	Status BookingStatus `gorm:"size:20;not null;default:'pending';index:idx_booking_status"`

	// Recurring Booking Support
	IsRecurring       bool    `gorm:"not null;default:false"`
	RecurringSeriesID *string `gorm:"size:50;uniqueIndex:idx_booking_series_visit,priority:1"`
	VisitNumber       *int    `gorm:"uniqueIndex:idx_booking_series_visit,priority:2"`

	// Special Instructions
	ClientNotes string `gorm:"type:text"` // Client's notes for the sitter
	SitterNotes string `gorm:"type:text"` // Sitter's notes after the visit

	CreatedAt time.Time `gorm:"autoCreateTime;not null;index:idx_booking_created"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null"`
}

// BookingStore defines the data access interface for bookings
type BookingStore interface {
	// Create creates a new booking. Returns ErrUniqueViolation when a
	// booking for the same (series, visit number) pair already exists.
	Create(ctx context.Context, booking *Booking) error

	// Get retrieves a booking by ID
	Get(ctx context.Context, id string) (*Booking, error)

	// GetBySeriesVisit retrieves the booking materialized for one visit slot
	GetBySeriesVisit(ctx context.Context, seriesID string, visitNumber int) (*Booking, error)

	// GetBySeries retrieves all bookings materialized from a series,
	// ordered by visit number
	GetBySeries(ctx context.Context, seriesID string) ([]*Booking, error)

	// GetByClient retrieves all bookings for a client
	GetByClient(ctx context.Context, clientID string, filters BookingFilters) ([]*Booking, error)

	// UpdateStatus updates the status of a booking
	UpdateStatus(ctx context.Context, bookingID string, status BookingStatus) error
}

// BookingFilters contains filter options for listing bookings
type BookingFilters struct {
	Status      *BookingStatus
	ServiceType *ServiceType
	StartDate   *time.Time
	EndDate     *time.Time
	IsRecurring *bool
	Limit       int
	Offset      int
	OrderBy     string // e.g., "scheduled_date DESC"
}
