// Command migrate applies the embedded schema (tenants, notifications) to
// the configured database. A bare invocation migrates up; `down` rolls back
// one step, `version` prints the current state, and `force <v>` repairs a
// dirty version after a failed run.
package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	appconfig "github.com/clearbrook/clinic-ops/internal/config"
	"github.com/clearbrook/clinic-ops/migrations"
	"github.com/clearbrook/clinic-ops/pkg/logging"
)

func main() {
	logger := logging.Default()
	if err := run(logger, os.Args[1:]); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *logging.Logger, args []string) error {
	cmd, forceVersion, err := parseArgs(args)
	if err != nil {
		return err
	}

	cfg := appconfig.Load()
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("database driver: %w", err)
	}
	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("schema source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	switch cmd {
	case "up":
		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				logger.Info("schema already up to date")
				return nil
			}
			return fmt.Errorf("migrate up: %w", err)
		}
		logger.Info("schema migrated up")
	case "down":
		if err := m.Steps(-1); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		logger.Info("rolled back one migration")
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			if errors.Is(err, migrate.ErrNilVersion) {
				logger.Info("no migrations applied yet")
				return nil
			}
			return fmt.Errorf("read version: %w", err)
		}
		logger.Info("schema version", "version", version, "dirty", dirty)
	case "force":
		if err := m.Force(forceVersion); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
		logger.Info("forced schema version", "version", forceVersion)
	}
	return nil
}

func parseArgs(args []string) (cmd string, forceVersion int, err error) {
	cmd = "up"
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "up", "down", "version":
		return cmd, 0, nil
	case "force":
		if len(args) < 2 {
			return "", 0, errors.New("force requires a version argument")
		}
		forceVersion, err = strconv.Atoi(args[1])
		if err != nil {
			return "", 0, fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		return cmd, forceVersion, nil
	default:
		return "", 0, fmt.Errorf("unknown command %q (want up, down, version, or force)", cmd)
	}
}
