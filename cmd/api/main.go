package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clearbrook/clinic-ops/cmd/mainconfig"
	"github.com/clearbrook/clinic-ops/internal/api/router"
	appconfig "github.com/clearbrook/clinic-ops/internal/config"
	"github.com/clearbrook/clinic-ops/internal/http/handlers"
	"github.com/clearbrook/clinic-ops/internal/medibook"
	"github.com/clearbrook/clinic-ops/internal/notifications"
	"github.com/clearbrook/clinic-ops/internal/notify"
	"github.com/clearbrook/clinic-ops/internal/observability/metrics"
	"github.com/clearbrook/clinic-ops/internal/realtime"
	"github.com/clearbrook/clinic-ops/internal/tenancy"
	"github.com/clearbrook/clinic-ops/internal/watch"
	"github.com/clearbrook/clinic-ops/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-ops API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Postgres: pgx pool for the app stores, database/sql for the admin
	// dashboard queries.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sqlDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sqlDB.Close() }()

	// Redis caches patient display names for notification enrichment. The
	// watcher degrades to raw IDs without it, so a missing address is fine.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		defer func() { _ = redisClient.Close() }()
	}

	// Metrics
	watchMetrics := metrics.NewWatchMetrics(prometheus.DefaultRegisterer)
	realtimeMetrics := metrics.NewRealtimeMetrics(prometheus.DefaultRegisterer)

	// Realtime fan-out hub
	hub := realtime.NewHub(logger, realtimeMetrics)

	// Optional operator email channel
	var secondary notifications.SecondaryChannel
	if svc := buildEmailService(ctx, cfg, logger); svc != nil {
		secondary = svc
	}

	// Stores and publisher
	tenantStore := tenancy.NewStore(pool)
	notifStore := notifications.NewStore(pool)
	publisher := notifications.NewPublisher(notifStore, hub, secondary, watchMetrics, logger)

	// MediBook scheduling client and patient directory
	mbClient, err := medibook.New(medibook.Config{
		BaseURL: cfg.MediBookBaseURL,
		Timeout: cfg.MediBookTimeout,
	})
	if err != nil {
		logger.Error("failed to create scheduling client", "error", err)
		os.Exit(1)
	}
	directory := medibook.NewCachedDirectory(mbClient, redisClient, logger)

	// Watcher registry
	registry, err := watch.NewRegistry(watch.RegistryConfig{
		Tenants:     tenantStore,
		Source:      mbClient,
		Directory:   directory,
		Notifier:    publisher,
		Interval:    cfg.WatchInterval,
		ReadyStatus: cfg.WatchReadyStatus,
		WindowDays:  cfg.WatchWindowDays,
		Metrics:     watchMetrics,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to create watcher registry", "error", err)
		os.Exit(1)
	}
	defer registry.StopAll()

	bootstrapWatchers(ctx, cfg, tenantStore, registry, logger)

	// Handlers and router
	routerCfg := &router.Config{
		Logger:             logger,
		Hub:                hub,
		AdminWatch:         handlers.NewAdminWatchHandler(registry, logger),
		AdminNotifications: handlers.NewAdminNotificationsHandler(sqlDB, logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildEmailService wires the configured email provider, or nil when email
// fan-out is disabled.
func buildEmailService(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *notify.Service {
	var sender notify.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger); s != nil {
			sender = s
		}
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config, email disabled", "error", err)
			return nil
		}
		if s := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger); s != nil {
			sender = s
		}
	case "":
		return nil
	default:
		logger.Warn("unknown email provider, email disabled", "provider", cfg.EmailProvider)
		return nil
	}
	if sender == nil {
		return nil
	}
	return notify.NewService(sender, cfg.EmailRecipients, logger)
}

// bootstrapWatchers starts pollers for every active tenant at boot. Failures
// are logged per tenant so one bad credential set cannot block the rest.
func bootstrapWatchers(ctx context.Context, cfg *appconfig.Config, tenants *tenancy.Store, registry *watch.Registry, logger *logging.Logger) {
	active, err := tenants.ListActive(ctx)
	if err != nil {
		logger.Error("failed to list active tenants, skipping watcher bootstrap", "error", err)
	} else {
		for _, t := range active {
			if err := registry.EnsureRunning(ctx, t.ID); err != nil {
				logger.Error("failed to start watcher", "error", err, "org_id", t.ID, "code", t.Code)
			}
		}
	}

	if cfg.WatchBootstrapOrg == "" {
		return
	}
	orgID, err := uuid.Parse(cfg.WatchBootstrapOrg)
	if err != nil {
		logger.Error("invalid WATCH_BOOTSTRAP_ORG", "error", err, "value", cfg.WatchBootstrapOrg)
		return
	}
	if err := registry.EnsureRunning(ctx, orgID); err != nil {
		logger.Error("failed to start bootstrap watcher", "error", err, "org_id", orgID)
	}
}
