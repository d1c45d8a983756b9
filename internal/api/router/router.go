package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clearbrook/clinic-ops/internal/http/handlers"
	httpmiddleware "github.com/clearbrook/clinic-ops/internal/http/middleware"
	"github.com/clearbrook/clinic-ops/internal/realtime"
	"github.com/clearbrook/clinic-ops/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Hub                *realtime.Hub
	AdminWatch         *handlers.AdminWatchHandler
	AdminNotifications *handlers.AdminNotificationsHandler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Hub != nil {
			public.Get("/ws", cfg.Hub.HandleWebSocket)
		}
	})

	// Admin endpoints (JWT protected)
	r.Group(func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret, cfg.Logger))
		admin.Route("/admin/orgs/{orgID}", func(r chi.Router) {
			if cfg.AdminWatch != nil {
				r.Route("/watch", func(r chi.Router) {
					r.Get("/", cfg.AdminWatch.GetStatus)
					r.Post("/start", cfg.AdminWatch.StartWatcher)
					r.Post("/tick", cfg.AdminWatch.TriggerTick)
				})
			}
			if cfg.AdminNotifications != nil {
				r.Get("/notifications", cfg.AdminNotifications.ListNotifications)
			}
		})
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
