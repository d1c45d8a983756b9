package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clearbrook/clinic-ops/internal/medibook"
	"github.com/clearbrook/clinic-ops/internal/observability/metrics"
	"github.com/clearbrook/clinic-ops/internal/tenancy"
	"github.com/clearbrook/clinic-ops/pkg/logging"
)

// ErrNotRunning is returned by TickNow when no watcher exists for the tenant.
var ErrNotRunning = errors.New("watch: no watcher running for tenant")

// TenantSource resolves tenants for credential lookup.
type TenantSource interface {
	Get(ctx context.Context, orgID uuid.UUID) (*tenancy.Tenant, error)
}

// Handle marks one running tenant poller.
type Handle struct {
	poller    *Poller
	cancel    context.CancelFunc
	StartedAt time.Time
}

// Registry starts at most one poller per tenant. Start requests for a
// tenant that is already running are no-ops.
type Registry struct {
	tenants   TenantSource
	source    AppointmentSource
	directory medibook.Directory
	notifier  Notifier

	interval    time.Duration
	readyStatus int
	windowDays  int

	metrics *metrics.WatchMetrics
	logger  *logging.Logger

	mu      sync.Mutex
	handles map[string]*Handle
}

// RegistryConfig wires the registry's collaborators.
type RegistryConfig struct {
	Tenants   TenantSource
	Source    AppointmentSource
	Directory medibook.Directory
	Notifier  Notifier

	Interval    time.Duration
	ReadyStatus int
	WindowDays  int

	Metrics *metrics.WatchMetrics
	Logger  *logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Tenants == nil {
		return nil, errors.New("watch: registry requires tenant source")
	}
	if cfg.Source == nil {
		return nil, errors.New("watch: registry requires appointment source")
	}
	if cfg.Notifier == nil {
		return nil, errors.New("watch: registry requires notifier")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Registry{
		tenants:     cfg.Tenants,
		source:      cfg.Source,
		directory:   cfg.Directory,
		notifier:    cfg.Notifier,
		interval:    cfg.Interval,
		readyStatus: cfg.ReadyStatus,
		windowDays:  cfg.WindowDays,
		metrics:     cfg.Metrics,
		logger:      logger,
		handles:     make(map[string]*Handle),
	}, nil
}

// EnsureRunning starts a poller for the tenant unless one is already
// running. Credential resolution failures start nothing and are returned to
// the caller; the registry stays clean so a later call can retry.
func (r *Registry) EnsureRunning(ctx context.Context, orgID uuid.UUID) error {
	key := orgID.String()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handles[key]; ok {
		return nil
	}

	tenant, err := r.tenants.Get(ctx, orgID)
	if err != nil {
		return fmt.Errorf("watch: resolve tenant %s: %w", key, err)
	}
	creds, err := tenant.Credentials()
	if err != nil {
		return fmt.Errorf("watch: tenant %s: %w", key, err)
	}

	poller, err := NewPoller(PollerConfig{
		OrgID:       key,
		Creds:       creds,
		Source:      r.source,
		Directory:   r.directory,
		Notifier:    r.notifier,
		Interval:    r.interval,
		ReadyStatus: r.readyStatus,
		WindowDays:  r.windowDays,
		Metrics:     r.metrics,
		Logger:      r.logger,
	})
	if err != nil {
		return err
	}

	// The poller outlives the caller's request; it runs until Stop or
	// process exit.
	runCtx, cancel := context.WithCancel(context.Background())
	r.handles[key] = &Handle{poller: poller, cancel: cancel, StartedAt: time.Now().UTC()}
	go poller.Start(runCtx)

	r.logger.Info("watch: poller started", "org_id", key, "code", tenant.Code)
	return nil
}

// TickNow runs exactly one synchronous poll cycle for the tenant, reusing
// the running poller's state so the result matches the background loop.
func (r *Registry) TickNow(ctx context.Context, orgID uuid.UUID) error {
	r.mu.Lock()
	handle, ok := r.handles[orgID.String()]
	r.mu.Unlock()
	if !ok {
		return ErrNotRunning
	}
	return handle.poller.RunOnce(ctx)
}

// Status reports whether a watcher is running for the tenant and since when.
func (r *Registry) Status(orgID uuid.UUID) (running bool, startedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	handle, ok := r.handles[orgID.String()]
	if !ok {
		return false, time.Time{}
	}
	return true, handle.StartedAt
}

// Stop cancels the tenant's poller if one is running. Normal operation
// never calls this; it exists so deployments can restart a tenant's watcher
// without restarting the process.
func (r *Registry) Stop(orgID uuid.UUID) bool {
	key := orgID.String()

	r.mu.Lock()
	defer r.mu.Unlock()

	handle, ok := r.handles[key]
	if !ok {
		return false
	}
	handle.cancel()
	delete(r.handles, key)
	r.logger.Info("watch: poller stopped by request", "org_id", key)
	return true
}

// StopAll cancels every running poller; used on shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, handle := range r.handles {
		handle.cancel()
		delete(r.handles, key)
	}
}

// Running returns the number of active pollers.
func (r *Registry) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
