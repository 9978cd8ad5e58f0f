package database

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/XSAM/otelsql"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/pressly/goose/v3"
	"go.opentelemetry.io/otel/attribute"
)

// Migrate applies goose migrations from fsys. command is one of "up", "down"
// or "status". goose needs database/sql, so this opens a separate
// instrumented connection instead of using the pool.
func Migrate(ctx context.Context, dsn string, fsys fs.FS, command string) error {
	db, err := otelsql.Open("pgx", dsn, otelsql.WithAttributes(attribute.String("db.system", "postgresql")))
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		for _, r := range results {
			slog.Info("Migration applied", "version", r.Source.Version, "duration", r.Duration)
		}
	case "down":
		result, err := provider.Down(ctx)
		if err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		if result != nil {
			slog.Info("Migration rolled back", "version", result.Source.Version)
		}
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		for _, s := range statuses {
			slog.Info("Migration status", "version", s.Source.Version, "state", s.State)
		}
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}

	return nil
}
