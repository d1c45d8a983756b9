package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	DatabaseURL    string
	AdminJWTSecret string

	CORSAllowedOrigins []string

	// Redis (patient display-name cache)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// MediBook scheduling API
	MediBookBaseURL string
	MediBookTimeout time.Duration

	// Appointment status watcher
	WatchInterval     time.Duration
	WatchReadyStatus  int
	WatchWindowDays   int
	WatchBootstrapOrg string

	// Operator email fan-out
	EmailProvider      string
	SendGridAPIKey     string
	EmailFromAddress   string
	EmailFromName      string
	EmailRecipients    []string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
}

// Load reads configuration from environment variables. In development a local
// .env file is read first so the api binary runs without exported vars.
func Load() *Config {
	if strings.EqualFold(getEnv("ENV", "development"), "development") {
		_ = godotenv.Load()
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		MediBookBaseURL: getEnv("MEDIBOOK_BASE_URL", ""),
		MediBookTimeout: getEnvAsDuration("MEDIBOOK_TIMEOUT", 15*time.Second),

		WatchInterval:     getEnvAsDuration("WATCH_INTERVAL", 10*time.Second),
		WatchReadyStatus:  getEnvAsInt("WATCH_READY_STATUS", 23),
		WatchWindowDays:   getEnvAsInt("WATCH_WINDOW_DAYS", 1),
		WatchBootstrapOrg: getEnv("WATCH_BOOTSTRAP_ORG", ""),

		EmailProvider:      strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", ""))),
		SendGridAPIKey:     getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress:   getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:      getEnv("EMAIL_FROM_NAME", "Clearbrook Clinic Ops"),
		EmailRecipients:    getEnvAsList("EMAIL_RECIPIENTS"),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
