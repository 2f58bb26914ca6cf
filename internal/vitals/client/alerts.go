package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pulsecare/vitalwatch/internal/vitals/model"
)

// AlertsClient forwards persisted anomalies to the external alerting
// collaborator. The contract is at-most-once with no retry queue: a failed
// or timed-out dispatch means the notification is permanently lost for
// that anomaly, while the anomaly record itself stands.
type AlertsClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAlertsClient(baseURL string, timeout time.Duration) *AlertsClient {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &AlertsClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type notificationRequest struct {
	PatientID string `json:"patient_id"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
}

// Dispatch sends the anomaly notification. Any non-2xx status or transport
// failure is a dispatch failure.
func (c *AlertsClient) Dispatch(ctx context.Context, ev model.AnomalyEvent) error {
	body, err := json.Marshal(notificationRequest{
		PatientID: ev.PatientID.String(),
		Message:   "Anomaly Detected: " + ev.Description,
		Severity:  string(ev.Severity),
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notifications/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("alerts service status %d", resp.StatusCode)
	}
	return nil
}
