package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/clearbrook/clinic-ops/internal/medibook"
	"github.com/clearbrook/clinic-ops/internal/notifications"
	"github.com/clearbrook/clinic-ops/internal/observability/metrics"
	"github.com/clearbrook/clinic-ops/internal/tenancy"
	"github.com/clearbrook/clinic-ops/pkg/logging"
)

// AppointmentSource lists a tenant's appointments in a date window.
type AppointmentSource interface {
	ListAppointments(ctx context.Context, creds tenancy.Credentials, from, to time.Time) ([]medibook.Appointment, error)
}

// Notifier publishes a detected transition as a durable notification.
type Notifier interface {
	Publish(ctx context.Context, body, orgID string) (*notifications.Record, error)
}

// Poller watches one tenant's appointment feed and notifies when an
// appointment enters the ready status. The last-seen status map is owned by
// this poller alone; nothing else reads or writes it.
type Poller struct {
	orgID       string
	creds       tenancy.Credentials
	source      AppointmentSource
	directory   medibook.Directory
	notifier    Notifier
	readyStatus int
	windowDays  int
	metrics     *metrics.WatchMetrics
	logger      *logging.Logger
	now         func() time.Time

	tick <-chan time.Time
	stop func()

	// mu serializes ticks so a slow background fetch and a manual trigger
	// never race on lastSeen.
	mu       sync.Mutex
	lastSeen map[string]int
}

// PollerConfig configures a tenant poller.
type PollerConfig struct {
	OrgID     string
	Creds     tenancy.Credentials
	Source    AppointmentSource
	Directory medibook.Directory
	Notifier  Notifier

	Interval    time.Duration
	ReadyStatus int
	WindowDays  int

	Metrics *metrics.WatchMetrics
	Logger  *logging.Logger

	// Tick/Stop/Now are injectable for tests.
	Tick <-chan time.Time
	Stop func()
	Now  func() time.Time
}

// NewPoller validates the config and builds a poller.
func NewPoller(cfg PollerConfig) (*Poller, error) {
	if cfg.OrgID == "" {
		return nil, errors.New("watch: poller requires org id")
	}
	if cfg.Source == nil {
		return nil, errors.New("watch: poller requires appointment source")
	}
	if cfg.Notifier == nil {
		return nil, errors.New("watch: poller requires notifier")
	}

	readyStatus := cfg.ReadyStatus
	if readyStatus == 0 {
		readyStatus = 23
	}

	windowDays := cfg.WindowDays
	if windowDays <= 0 {
		windowDays = 1
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	tick := cfg.Tick
	stop := cfg.Stop
	if tick == nil {
		interval := cfg.Interval
		if interval <= 0 {
			interval = 10 * time.Second
		}
		ticker := time.NewTicker(interval)
		tick = ticker.C
		stop = ticker.Stop
	}

	return &Poller{
		orgID:       cfg.OrgID,
		creds:       cfg.Creds,
		source:      cfg.Source,
		directory:   cfg.Directory,
		notifier:    cfg.Notifier,
		readyStatus: readyStatus,
		windowDays:  windowDays,
		metrics:     cfg.Metrics,
		logger:      logger.With("org_id", cfg.OrgID),
		now:         now,
		tick:        tick,
		stop:        stop,
		lastSeen:    make(map[string]int),
	}, nil
}

// Start runs the poll loop until ctx is cancelled. The first cycle runs
// immediately so the map is seeded before the first interval elapses; a
// failed cycle is logged and the next tick retries from scratch.
func (p *Poller) Start(ctx context.Context) {
	if p == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() {
		if p.stop != nil {
			p.stop()
		}
	}()

	if err := p.RunOnce(ctx); err != nil {
		p.logger.Warn("watch: initial poll failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("watch: poller stopped")
			return
		case <-p.tick:
			if err := p.RunOnce(ctx); err != nil {
				p.logger.Warn("watch: poll failed", "error", err)
			}
		}
	}
}

// RunOnce executes a single fetch-diff-notify cycle. It is safe to call
// concurrently with the background loop; cycles are serialized per tenant.
// A fetch failure leaves the last-seen map untouched.
func (p *Poller) RunOnce(ctx context.Context) error {
	if p == nil {
		return errors.New("watch: poller not initialized")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ctx = tenancy.WithOrgID(ctx, p.orgID)

	from := p.now()
	to := from.AddDate(0, 0, p.windowDays)

	appts, err := p.source.ListAppointments(ctx, p.creds, from, to)
	if err != nil {
		p.metrics.ObserveTick(p.orgID, "error")
		return fmt.Errorf("watch: fetch appointments: %w", err)
	}

	for _, appt := range appts {
		prev, seen := p.lastSeen[appt.ID]
		if seen && prev != appt.Status && appt.Status == p.readyStatus {
			p.metrics.ObserveTransition(p.orgID)
			body := p.describe(ctx, appt)
			if _, err := p.notifier.Publish(ctx, body, p.orgID); err != nil {
				p.logger.Error("watch: publish failed", "error", err, "appointment_id", appt.ID)
			}
		}
		p.lastSeen[appt.ID] = appt.Status
	}

	p.metrics.ObserveTick(p.orgID, "ok")
	return nil
}

// describe builds the notification body, resolving the patient's display
// name when the directory allows it. A failed lookup falls back to ids so
// the transition is still announced.
func (p *Poller) describe(ctx context.Context, appt medibook.Appointment) string {
	name := ""
	if p.directory != nil && appt.PatientID != "" {
		patient, err := p.directory.GetPatient(ctx, p.creds, appt.PatientID)
		if err != nil {
			p.logger.Warn("watch: patient lookup failed", "error", err, "patient_id", appt.PatientID)
		} else if patient != nil {
			name = patient.DisplayName
		}
	}
	if name == "" {
		if appt.PatientID != "" {
			name = "Patient " + appt.PatientID
		} else {
			name = "A patient"
		}
	}
	return fmt.Sprintf("%s is ready to be seen (appointment %s)", name, appt.ID)
}
