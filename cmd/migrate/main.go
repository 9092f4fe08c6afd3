package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/saturnino-fabrica-de-software/ponto/internal/config"
	"github.com/saturnino-fabrica-de-software/ponto/internal/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	action := flag.String("action", "up", "Migration action: up, down, version, force")
	version := flag.Int("version", 0, "Target version (for force action)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)

	// golang-migrate needs database/sql
	db, err := database.OpenSQL(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	migrator, err := database.NewMigrator(db, databaseName(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	status, err := migrator.Run(database.Action(*action), *version)
	if err != nil {
		return err
	}

	logger.Info("migration finished",
		"action", *action,
		"version", status.Version,
		"dirty", status.Dirty,
	)
	if status.Dirty {
		return fmt.Errorf("schema version %d is dirty, fix it and run -action force -version %d", status.Version, status.Version)
	}
	return nil
}

// databaseName extracts the database from a postgres URL, used by
// golang-migrate to name its lock
func databaseName(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "ponto"
	}
	if name := strings.TrimPrefix(u.Path, "/"); name != "" {
		return name
	}
	return "ponto"
}
