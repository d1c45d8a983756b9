package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/clearbrook/clinic-ops/internal/observability/metrics"
	"github.com/clearbrook/clinic-ops/internal/realtime"
	"github.com/clearbrook/clinic-ops/pkg/logging"
)

// RecordStore persists notification records.
type RecordStore interface {
	Insert(ctx context.Context, rec *Record) error
}

// Broadcaster fans a named event out to connected observers.
type Broadcaster interface {
	Publish(event string, data any)
	PublishToRoom(room, event string, data any)
}

// SecondaryChannel receives best-effort copies of published records
// (e.g. operator email). Failures are logged, never propagated.
type SecondaryChannel interface {
	Deliver(ctx context.Context, rec Record) error
}

// Publisher composes a notification record, persists it, then broadcasts it.
// A record is always durably stored before any observer sees it.
type Publisher struct {
	store     RecordStore
	hub       Broadcaster
	secondary SecondaryChannel
	metrics   *metrics.WatchMetrics
	logger    *logging.Logger
	now       func() time.Time
}

// NewPublisher creates a publisher. secondary and metrics may be nil.
func NewPublisher(store RecordStore, hub Broadcaster, secondary SecondaryChannel, m *metrics.WatchMetrics, logger *logging.Logger) *Publisher {
	if store == nil {
		panic("notifications: record store required")
	}
	if hub == nil {
		panic("notifications: broadcaster required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		store:     store,
		hub:       hub,
		secondary: secondary,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Publish persists a system-authored record and delivers it to observers.
// If persistence fails the error is returned and nothing is broadcast.
func (p *Publisher) Publish(ctx context.Context, body, orgID string) (*Record, error) {
	rec := &Record{
		Author:    SystemAuthor,
		Body:      body,
		Category:  CategoryAppointments,
		OrgID:     orgID,
		CreatedAt: p.now().UTC(),
	}

	if err := p.store.Insert(ctx, rec); err != nil {
		p.metrics.ObservePublished(orgID, "persist_failed")
		return nil, fmt.Errorf("notifications: publish: %w", err)
	}

	if orgID != "" {
		// Tenant records reach the org room plus unscoped observers; other
		// tenants' rooms never see them.
		p.hub.PublishToRoom(orgID, EventNewMessage, rec)
		p.hub.PublishToRoom(realtime.GlobalRoom, EventNewMessage, rec)
	} else {
		p.hub.Publish(EventNewMessage, rec)
	}
	p.metrics.ObservePublished(orgID, "delivered")
	p.logger.Info("notification published", "id", rec.ID, "org_id", orgID, "category", rec.Category)

	if p.secondary != nil {
		if err := p.secondary.Deliver(ctx, *rec); err != nil {
			p.logger.Warn("secondary notification channel failed", "error", err, "id", rec.ID, "org_id", orgID)
		}
	}

	return rec, nil
}
