package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"pawsitter-api/res/store"

	"github.com/nats-io/nats.go"
)

// Publisher emits batch lifecycle events on NATS. Publishing is
// fire-and-forget from the orchestrator's point of view: subscribers
// (reporting, client apps) must tolerate missed events.
type Publisher struct {
	nc     *nats.Conn
	logger *log.Logger
}

func NewPublisher(natsURL string, logger *log.Logger) (*Publisher, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Printf("Connected to NATS at %s", natsURL)

	return &Publisher{
		nc:     nc,
		logger: logger,
	}, nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

type batchEvent struct {
	Type      string                `json:"type"`
	Batch     *store.RecurringBatch `json:"batch"`
	Timestamp time.Time             `json:"timestamp"`
	Message   string                `json:"message,omitempty"`
}

type bookingsEvent struct {
	Type       string    `json:"type"`
	SeriesID   string    `json:"seriesId"`
	BatchID    string    `json:"batchId"`
	BookingIDs []string  `json:"bookingIds"`
	Timestamp  time.Time `json:"timestamp"`
}

func (p *Publisher) PublishBatchApproved(b *store.RecurringBatch) error {
	event := &batchEvent{
		Type:      "batch.approved",
		Batch:     b,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.nc.Publish("pawsitter.batch.approved", data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Printf("Published batch.approved event (batch: %s)", b.ID)
	return nil
}

func (p *Publisher) PublishBatchRejected(b *store.RecurringBatch) error {
	event := &batchEvent{
		Type:      "batch.rejected",
		Batch:     b,
		Timestamp: time.Now(),
		Message:   b.RejectionReason,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.nc.Publish("pawsitter.batch.rejected", data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Printf("Published batch.rejected event (batch: %s)", b.ID)
	return nil
}

func (p *Publisher) PublishBookingsCreated(seriesID, batchID string, bookingIDs []string) error {
	event := &bookingsEvent{
		Type:       "booking.created",
		SeriesID:   seriesID,
		BatchID:    batchID,
		BookingIDs: bookingIDs,
		Timestamp:  time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.nc.Publish("pawsitter.booking.created", data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Printf("Published booking.created event (batch: %s, bookings: %d)", batchID, len(bookingIDs))
	return nil
}
