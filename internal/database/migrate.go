package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Action is a migration command understood by Migrator.Run
type Action string

const (
	ActionUp      Action = "up"
	ActionDown    Action = "down"
	ActionVersion Action = "version"
	ActionForce   Action = "force"
)

// Status describes the schema version after an action
type Status struct {
	Version uint
	Dirty   bool
}

// Migrator applies the embedded schema migrations
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator creates a migrator over an open database/sql handle
func NewMigrator(db *sql.DB, dbName string) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{
		DatabaseName: dbName,
	})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	return &Migrator{m: m}, nil
}

// Run executes action and reports the resulting version. version is only
// used by ActionForce.
func (m *Migrator) Run(action Action, version int) (Status, error) {
	var err error
	switch action {
	case ActionUp:
		err = m.m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			err = nil
		}
	case ActionDown:
		// rolls back a single migration
		err = m.m.Steps(-1)
	case ActionVersion:
	case ActionForce:
		if version <= 0 {
			return Status{}, fmt.Errorf("force needs a positive version, got %d", version)
		}
		err = m.m.Force(version)
	default:
		return Status{}, fmt.Errorf("invalid action %q (use: up, down, version, force)", action)
	}
	if err != nil {
		return Status{}, fmt.Errorf("migration %s: %w", action, err)
	}

	return m.Status()
}

// Status returns the current schema version. A database without any
// migration reports version 0.
func (m *Migrator) Status() (Status, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("get version: %w", err)
	}
	return Status{Version: version, Dirty: dirty}, nil
}

// Close closes the migrator
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if srcErr != nil {
		return fmt.Errorf("close source: %w", srcErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close database: %w", dbErr)
	}
	return nil
}
