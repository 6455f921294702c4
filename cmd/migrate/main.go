package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/saturnino-fabrica-de-software/facegate/internal/config"
	"github.com/saturnino-fabrica-de-software/facegate/internal/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	action := flag.String("action", "up", "Migration action: up, down, status, force")
	version := flag.Int("version", -1, "Schema version to record (force only)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)

	// golang-migrate needs a database/sql connection
	db, err := database.NewPool(database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = db.Close() }()

	migrator, err := database.NewMigrator(db, "facegate", logger)
	if err != nil {
		return err
	}
	defer func() { _ = migrator.Close() }()

	switch *action {
	case "up":
		return migrator.Up()

	case "down":
		return migrator.Down()

	case "status", "version":
		status, err := migrator.Status()
		if err != nil {
			return err
		}
		logger.Info("gallery schema status",
			slog.Uint64("version", uint64(status.Version)),
			slog.Uint64("latest", uint64(status.Latest)),
			slog.Bool("dirty", status.Dirty),
			slog.Bool("pending", status.Pending()),
		)
		return nil

	case "force":
		if *version < 0 {
			return errors.New("-version is required for force")
		}
		return migrator.Force(*version)

	default:
		return fmt.Errorf("invalid action %q (use: up, down, status, force)", *action)
	}
}
