package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// SchemaSource names the embedded gallery schema in migrate's bookkeeping.
const SchemaSource = "facegate-schema"

//go:embed migrations/*.sql
var schemaFS embed.FS

// SchemaStatus describes where a database stands against the embedded
// gallery schema.
type SchemaStatus struct {
	Version uint
	Latest  uint
	Dirty   bool
}

// Pending reports whether migrations remain to be applied.
func (s SchemaStatus) Pending() bool {
	return s.Version < s.Latest
}

// Migrator applies the gallery schema (identities, identity_embeddings,
// verifications) to a postgres database.
type Migrator struct {
	m      *migrate.Migrate
	latest uint
	logger *slog.Logger
}

// NewMigrator prepares the embedded schema for db. Every applied schema
// version is logged through logger.
func NewMigrator(db *sql.DB, dbName string, logger *slog.Logger) (*Migrator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{DatabaseName: dbName})
	if err != nil {
		return nil, fmt.Errorf("open schema driver for %s: %w", dbName, err)
	}

	src, err := iofs.New(schemaFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", SchemaSource, err)
	}

	latest, err := latestVersion(src)
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithInstance(SchemaSource, src, dbName, driver)
	if err != nil {
		return nil, fmt.Errorf("prepare %s for %s: %w", SchemaSource, dbName, err)
	}
	m.Log = schemaLogger{logger: logger}

	return &Migrator{m: m, latest: latest, logger: logger}, nil
}

// latestVersion walks the source to its last migration.
func latestVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", SchemaSource, err)
	}
	for {
		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, fmt.Errorf("read %s after version %d: %w", SchemaSource, v, err)
		}
		v = next
	}
}

// Status returns the applied and latest schema versions.
func (m *Migrator) Status() (SchemaStatus, error) {
	status := SchemaStatus{Latest: m.latest}

	version, dirty, err := m.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return status, nil
	case err != nil:
		return status, fmt.Errorf("read schema version: %w", err)
	}
	status.Version = version
	status.Dirty = dirty
	return status, nil
}

// Up applies every pending migration. A dirty schema is reported without
// touching the database.
func (m *Migrator) Up() error {
	before, err := m.Status()
	if err != nil {
		return err
	}
	if before.Dirty {
		return fmt.Errorf("schema version %d is dirty, repair it with force", before.Version)
	}
	if !before.Pending() {
		m.logger.Debug("gallery schema up to date", slog.Uint64("version", uint64(before.Version)))
		return nil
	}

	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate gallery schema from version %d: %w", before.Version, err)
	}

	m.logger.Info("gallery schema migrated",
		slog.Uint64("from", uint64(before.Version)),
		slog.Uint64("to", uint64(m.latest)),
	)
	return nil
}

// Down reverts the most recent migration.
func (m *Migrator) Down() error {
	before, err := m.Status()
	if err != nil {
		return err
	}
	if before.Version == 0 {
		return nil
	}

	if err := m.m.Steps(-1); err != nil {
		return fmt.Errorf("revert gallery schema version %d: %w", before.Version, err)
	}
	m.logger.Info("gallery schema reverted", slog.Uint64("version", uint64(before.Version)))
	return nil
}

// Force records version as applied and clears the dirty flag without
// running any migration.
func (m *Migrator) Force(version int) error {
	if version < 0 || uint(version) > m.latest {
		return fmt.Errorf("force version %d: schema has versions 0..%d", version, m.latest)
	}
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force schema version %d: %w", version, err)
	}
	m.logger.Warn("gallery schema version forced", slog.Int("version", version))
	return nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

// schemaLogger routes migrate's progress lines, one per applied version,
// into slog.
type schemaLogger struct {
	logger *slog.Logger
}

func (l schemaLogger) Printf(format string, v ...any) {
	l.logger.Info("schema migration", slog.String("step", strings.TrimSpace(fmt.Sprintf(format, v...))))
}

func (l schemaLogger) Verbose() bool {
	return false
}
