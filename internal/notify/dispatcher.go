package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/michalkw/traffic-status-service/internal/mq"
	"go.uber.org/zap"
)

// Dispatcher delivers incident events to the external notification webhook.
// It runs in the notifier worker; a delivery failure nacks the message to
// the DLQ, so the write path never depends on it.
type Dispatcher struct {
	webhookURL string
	client     *http.Client
	logger     *zap.Logger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(webhookURL string, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// notificationPayload is the body posted to the webhook.
type notificationPayload struct {
	Title        string `json:"title"`
	Street       string `json:"street"`
	Direction    string `json:"direction"`
	IncidentType string `json:"incident_type"`
	ReportedAt   string `json:"reported_at"`
}

// HandleMessage decodes an incident event and posts it to the webhook.
func (d *Dispatcher) HandleMessage(ctx context.Context, body []byte) error {
	var event mq.IncidentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to unmarshal incident event: %w", err)
	}

	if d.webhookURL == "" {
		d.logger.Warn("no notification webhook configured, dropping event",
			zap.String("report_id", event.ReportID))
		return nil
	}

	payload := notificationPayload{
		Title:        fmt.Sprintf("Incident on %s: %s", event.Street, event.IncidentType),
		Street:       event.Street,
		Direction:    event.Direction,
		IncidentType: event.IncidentType,
		ReportedAt:   event.ReportedAt,
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}

	d.logger.Info("notification delivered",
		zap.String("report_id", event.ReportID),
		zap.String("street", event.Street),
		zap.String("incident_type", event.IncidentType))

	return nil
}
