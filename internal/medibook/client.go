package medibook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clearbrook/clinic-ops/internal/tenancy"
)

// Client calls the MediBook scheduling API with per-tenant bearer credentials.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds configuration for the MediBook client.
type Config struct {
	BaseURL string // default API host; a tenant may override it in its credentials
	Timeout time.Duration
}

// New creates a MediBook API client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("medibook: BaseURL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// ListAppointments retrieves the tenant's appointments in [from, to].
// MediBook: GET /v1/appointments?from=...&to=...
func (c *Client) ListAppointments(ctx context.Context, creds tenancy.Credentials, from, to time.Time) ([]Appointment, error) {
	params := url.Values{}
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))

	endpoint := fmt.Sprintf("%s/v1/appointments?%s", c.hostFor(creds), params.Encode())

	var list appointmentList
	if err := c.getJSON(ctx, creds, endpoint, &list); err != nil {
		return nil, err
	}
	return list.Appointments, nil
}

// GetPatient resolves a patient record, used to put a display name in
// notification bodies. MediBook: GET /v1/patients/{id}
func (c *Client) GetPatient(ctx context.Context, creds tenancy.Credentials, patientID string) (*Patient, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, fmt.Errorf("medibook: patient id is required")
	}

	endpoint := fmt.Sprintf("%s/v1/patients/%s", c.hostFor(creds), url.PathEscape(patientID))

	var patient Patient
	if err := c.getJSON(ctx, creds, endpoint, &patient); err != nil {
		return nil, err
	}
	return &patient, nil
}

func (c *Client) hostFor(creds tenancy.Credentials) string {
	if base := strings.TrimSpace(creds.BaseURL); base != "" {
		return strings.TrimSuffix(base, "/")
	}
	return c.baseURL
}

func (c *Client) getJSON(ctx context.Context, creds tenancy.Credentials, endpoint string, out any) error {
	if strings.TrimSpace(creds.BearerToken) == "" {
		return fmt.Errorf("medibook: bearer token is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("medibook: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.BearerToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("medibook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("medibook: API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("medibook: failed to decode response: %w", err)
	}
	return nil
}
