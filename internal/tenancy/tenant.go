package tenancy

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNoCredentials is returned when a tenant exists but has no usable
// MediBook credentials, so nothing can be fetched on its behalf.
var ErrNoCredentials = errors.New("tenancy: tenant has no scheduling credentials")

// Tenant is one clinic location. Tenants are created by administration
// tooling; this service only reads them.
type Tenant struct {
	ID        uuid.UUID
	Code      string
	Name      string
	Active    bool
	CreatedAt time.Time

	// MediBook API access, scoped to this location.
	MediBookToken   string
	MediBookBaseURL string
}

// Credentials are what the MediBook client needs to call the API for one tenant.
type Credentials struct {
	OrgID       string
	BearerToken string
	BaseURL     string
}

// Credentials returns the tenant's MediBook credentials or ErrNoCredentials.
func (t *Tenant) Credentials() (Credentials, error) {
	if t == nil || strings.TrimSpace(t.MediBookToken) == "" {
		return Credentials{}, ErrNoCredentials
	}
	return Credentials{
		OrgID:       t.ID.String(),
		BearerToken: strings.TrimSpace(t.MediBookToken),
		BaseURL:     strings.TrimSpace(t.MediBookBaseURL),
	}, nil
}
