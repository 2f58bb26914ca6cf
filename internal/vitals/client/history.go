package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pulsecare/vitalwatch/internal/vitals/model"
)

// HistoryClient pulls historical vital-sign samples from the time-series
// collaborator, one metric per request.
type HistoryClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHistoryClient(baseURL string, timeout time.Duration) *HistoryClient {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HistoryClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type historyPoint struct {
	Timestamp string   `json:"timestamp"`
	Value     *float64 `json:"value"`
}

// Samples fetches the patient's samples for one metric within [start, end].
// Points without a value or with an unparseable timestamp are skipped.
func (c *HistoryClient) Samples(ctx context.Context, patientID uuid.UUID, metric model.Metric, start, end time.Time) ([]model.Sample, error) {
	endpoint := fmt.Sprintf("%s/%s/history", c.baseURL, patientID)
	params := url.Values{}
	params.Set("start_time", start.Format(time.RFC3339))
	params.Set("end_time", end.Format(time.RFC3339))
	params.Set("metric_type", string(metric))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build history request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: history service status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var points []historyPoint
	if err := json.NewDecoder(resp.Body).Decode(&points); err != nil {
		return nil, fmt.Errorf("decode history response: %w", err)
	}
	samples := make([]model.Sample, 0, len(points))
	for _, p := range points {
		if p.Value == nil {
			continue
		}
		ts, err := model.ParseTimestamp(p.Timestamp)
		if err != nil {
			continue
		}
		samples = append(samples, model.Sample{Timestamp: ts, Value: *p.Value})
	}
	return samples, nil
}
