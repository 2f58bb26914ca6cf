package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrPatientNotFound is returned when the identity collaborator does not
// know the patient.
var ErrPatientNotFound = errors.New("patient not found")

// ErrUpstreamUnavailable is returned when a collaborator cannot be reached
// or answers with an unexpected status.
var ErrUpstreamUnavailable = errors.New("upstream service unavailable")

// UsersClient validates patient ids against the external identity
// collaborator. Only administrative paths call it; the live evaluation
// loop never does.
type UsersClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewUsersClient(baseURL string, timeout time.Duration) *UsersClient {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &UsersClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// EnsureExists resolves to nil when the patient exists, ErrPatientNotFound
// on 404, and ErrUpstreamUnavailable for every other failure.
func (c *UsersClient) EnsureExists(ctx context.Context, patientID uuid.UUID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+patientID.String(), nil)
	if err != nil {
		return fmt.Errorf("build user request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrPatientNotFound
	default:
		return fmt.Errorf("%w: user service status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
}
