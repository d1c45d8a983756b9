package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clearbrook/clinic-ops/pkg/logging"
)

// AdminNotificationsHandler serves the persisted notification history for
// the admin dashboard.
type AdminNotificationsHandler struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewAdminNotificationsHandler creates the handler.
func NewAdminNotificationsHandler(db *sql.DB, logger *logging.Logger) *AdminNotificationsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminNotificationsHandler{db: db, logger: logger}
}

// NotificationResponse is one row of notification history.
type NotificationResponse struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Body      string `json:"body"`
	Category  string `json:"category"`
	OrgID     string `json:"org_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ListNotifications returns recent notification records for an org,
// including global broadcasts.
// GET /admin/orgs/{orgID}/notifications?limit=50
func (h *AdminNotificationsHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	if orgID == "" {
		jsonError(w, "missing orgID", http.StatusBadRequest)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	query := `
		SELECT id, author, body, category, COALESCE(org_id, ''), created_at
		FROM notifications
		WHERE org_id IS NULL OR org_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := h.db.QueryContext(r.Context(), query, orgID, limit)
	if err != nil {
		h.logger.Error("failed to list notifications", "error", err, "org_id", orgID)
		jsonError(w, "failed to list notifications", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	notifications := make([]NotificationResponse, 0)
	for rows.Next() {
		var n NotificationResponse
		var createdAt time.Time
		if err := rows.Scan(&n.ID, &n.Author, &n.Body, &n.Category, &n.OrgID, &createdAt); err != nil {
			h.logger.Error("failed to scan notification", "error", err)
			jsonError(w, "failed to list notifications", http.StatusInternalServerError)
			return
		}
		n.CreatedAt = createdAt.Format(time.RFC3339)
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("notification rows error", "error", err)
		jsonError(w, "failed to list notifications", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{"notifications": notifications})
}
