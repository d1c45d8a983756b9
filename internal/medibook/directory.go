package medibook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/clearbrook/clinic-ops/internal/tenancy"
	"github.com/clearbrook/clinic-ops/pkg/logging"
)

const patientCacheTTL = time.Hour

// Directory resolves patient records for notification enrichment.
type Directory interface {
	GetPatient(ctx context.Context, creds tenancy.Credentials, patientID string) (*Patient, error)
}

// CachedDirectory caches patient lookups in Redis. Patient names change
// rarely and each ready transition triggers a lookup, so a short TTL cache
// keeps the watcher from hammering the MediBook patient endpoint.
type CachedDirectory struct {
	upstream Directory
	redis    *redis.Client
	tracer   trace.Tracer
	logger   *logging.Logger
}

// NewCachedDirectory wraps a directory with a Redis cache. A nil redis client
// disables caching; lookups pass straight through.
func NewCachedDirectory(upstream Directory, redisClient *redis.Client, logger *logging.Logger) *CachedDirectory {
	if upstream == nil {
		panic("medibook: upstream directory required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedDirectory{
		upstream: upstream,
		redis:    redisClient,
		tracer:   otel.Tracer("clinicops.internal.medibook.directory"),
		logger:   logger,
	}
}

// GetPatient serves from cache when possible; any Redis failure degrades to
// the upstream lookup rather than failing the caller.
func (d *CachedDirectory) GetPatient(ctx context.Context, creds tenancy.Credentials, patientID string) (*Patient, error) {
	if d.redis == nil {
		return d.upstream.GetPatient(ctx, creds, patientID)
	}

	ctx, span := d.tracer.Start(ctx, "medibook.get_patient_cached")
	defer span.End()

	key := patientKey(orgFor(ctx, creds), patientID)
	if data, err := d.redis.Get(ctx, key).Bytes(); err == nil {
		var patient Patient
		if err := json.Unmarshal(data, &patient); err == nil {
			return &patient, nil
		}
		// Corrupt entry; fall through and refresh.
	} else if err != redis.Nil {
		span.RecordError(err)
		d.logger.Warn("patient cache read failed", "error", err, "org_id", creds.OrgID)
	}

	patient, err := d.upstream.GetPatient(ctx, creds, patientID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if data, err := json.Marshal(patient); err == nil {
		if err := d.redis.Set(ctx, key, data, patientCacheTTL).Err(); err != nil {
			span.RecordError(err)
			d.logger.Warn("patient cache write failed", "error", err, "org_id", creds.OrgID)
		}
	}
	return patient, nil
}

func patientKey(orgID, patientID string) string {
	return fmt.Sprintf("patient:%s:%s", orgID, patientID)
}

// orgFor scopes cache keys. Credentials normally carry the org; pollers also
// tag their tick context, which covers shared-credential lookups.
func orgFor(ctx context.Context, creds tenancy.Credentials) string {
	if creds.OrgID != "" {
		return creds.OrgID
	}
	if org, ok := tenancy.OrgIDFromContext(ctx); ok {
		return org
	}
	return "unknown"
}
