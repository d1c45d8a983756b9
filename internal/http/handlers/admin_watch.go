package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clearbrook/clinic-ops/internal/http/middleware"
	"github.com/clearbrook/clinic-ops/internal/tenancy"
	"github.com/clearbrook/clinic-ops/internal/watch"
	"github.com/clearbrook/clinic-ops/pkg/logging"
)

// WatcherControl is the slice of the watch registry the admin API needs.
type WatcherControl interface {
	EnsureRunning(ctx context.Context, orgID uuid.UUID) error
	TickNow(ctx context.Context, orgID uuid.UUID) error
	Status(orgID uuid.UUID) (running bool, startedAt time.Time)
}

// AdminWatchHandler exposes the watcher admin API: manual poll trigger,
// watcher start, and status.
type AdminWatchHandler struct {
	registry WatcherControl
	logger   *logging.Logger
}

// NewAdminWatchHandler creates the handler.
func NewAdminWatchHandler(registry WatcherControl, logger *logging.Logger) *AdminWatchHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminWatchHandler{registry: registry, logger: logger}
}

// TriggerTick runs one synchronous poll cycle for the org.
// POST /admin/orgs/{orgID}/watch/tick
func (h *AdminWatchHandler) TriggerTick(w http.ResponseWriter, r *http.Request) {
	orgID, ok := parseOrgID(w, r)
	if !ok {
		return
	}

	operator, _ := middleware.AdminSubjectFromContext(r.Context())
	if err := h.registry.TickNow(r.Context(), orgID); err != nil {
		switch {
		case errors.Is(err, watch.ErrNotRunning):
			jsonError(w, "no watcher running for this clinic", http.StatusConflict)
		default:
			h.logger.Error("manual tick failed", "error", err, "org_id", orgID)
			jsonError(w, "tick failed: "+err.Error(), http.StatusBadGateway)
		}
		return
	}

	h.logger.Info("manual tick completed", "org_id", orgID, "operator", operator)
	jsonResponse(w, http.StatusAccepted, map[string]string{"status": "completed"})
}

// StartWatcher ensures a background poller is running for the org.
// POST /admin/orgs/{orgID}/watch/start
func (h *AdminWatchHandler) StartWatcher(w http.ResponseWriter, r *http.Request) {
	orgID, ok := parseOrgID(w, r)
	if !ok {
		return
	}

	operator, _ := middleware.AdminSubjectFromContext(r.Context())
	if err := h.registry.EnsureRunning(r.Context(), orgID); err != nil {
		switch {
		case errors.Is(err, tenancy.ErrNotFound):
			jsonError(w, "unknown clinic", http.StatusNotFound)
		case errors.Is(err, tenancy.ErrNoCredentials):
			jsonError(w, "clinic has no scheduling credentials", http.StatusUnprocessableEntity)
		default:
			h.logger.Error("watcher start failed", "error", err, "org_id", orgID)
			jsonError(w, "failed to start watcher", http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("watcher ensured", "org_id", orgID, "operator", operator)
	jsonResponse(w, http.StatusOK, map[string]string{"status": "running"})
}

// GetStatus reports whether a watcher is running for the org.
// GET /admin/orgs/{orgID}/watch
func (h *AdminWatchHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	orgID, ok := parseOrgID(w, r)
	if !ok {
		return
	}

	running, startedAt := h.registry.Status(orgID)
	resp := map[string]any{"running": running}
	if running {
		resp["started_at"] = startedAt.Format(time.RFC3339)
	}
	jsonResponse(w, http.StatusOK, resp)
}

func parseOrgID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "orgID")
	if raw == "" {
		jsonError(w, "missing orgID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	orgID, err := uuid.Parse(raw)
	if err != nil {
		jsonError(w, "invalid orgID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return orgID, true
}
