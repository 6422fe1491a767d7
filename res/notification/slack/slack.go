package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"pawsitter-api/res/notification"
)

// notificationService implements the NotificationService interface
type notificationService struct {
	webhookURL string
	httpClient *http.Client
	logger     *log.Logger
}

// slackMessage represents the structure of a Slack message
type slackMessage struct {
	Text string `json:"text"`
}

// New creates a new NotificationService instance
func New(webhookURL string, timeout time.Duration, logger *log.Logger) notification.NotificationService {
	return &notificationService{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// NotifyClientBookingCreated sends a notification when a batch approval
// materialized a client's bookings
func (s *notificationService) NotifyClientBookingCreated(ctx context.Context, clientID, seriesID string, bookingCount int, firstVisit time.Time) error {
	// If webhook URL is not configured, skip notification silently
	if s.webhookURL == "" {
		s.logger.Printf("Slack webhook URL not configured, skipping notification")
		return nil
	}

	message := slackMessage{
		Text: fmt.Sprintf(":dog: %d visit(s) booked for client %s (series %s), first visit %s",
			bookingCount, clientID, seriesID, firstVisit.Format("2006-01-02 15:04")),
	}

	return s.sendToSlack(ctx, message)
}

// NotifyBatchFailed sends an alert when a batch approval fails partway
// through materialization
func (s *notificationService) NotifyBatchFailed(ctx context.Context, batchID string, materialized, pending int) error {
	// If webhook URL is not configured, skip notification silently
	if s.webhookURL == "" {
		s.logger.Printf("Slack webhook URL not configured, skipping alert")
		return nil
	}

	message := slackMessage{
		Text: fmt.Sprintf(":rotating_light: Batch %s failed during approval: %d visit(s) materialized, %d pending. Re-approve to resume.",
			batchID, materialized, pending),
	}

	return s.sendToSlack(ctx, message)
}

// sendToSlack is a helper method to send messages to Slack
func (s *notificationService) sendToSlack(ctx context.Context, message slackMessage) error {
	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("slack webhook returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
