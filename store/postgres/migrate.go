package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-tenant-server/store/postgres/migrations"
	"github.com/rs/zerolog/log"
)

const migrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    name        TEXT PRIMARY KEY,
    applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func migrationFiles(suffix string) ([]string, error) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(strings.ToLower(e.Name()), suffix) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Migrate applies every *_up.sql file not yet recorded in schema_migrations,
// each in its own transaction.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	if _, err := pool.Exec(ctx, migrationsTable); err != nil {
		return 0, fmt.Errorf("[postgres.Migrate] create schema_migrations: %w", err)
	}
	files, err := migrationFiles("_up.sql")
	if err != nil {
		return 0, fmt.Errorf("[postgres.Migrate] %w", err)
	}

	applied := 0
	for _, name := range files {
		var done bool
		if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name).Scan(&done); err != nil {
			return applied, fmt.Errorf("[postgres.Migrate] check %s: %w", name, err)
		}
		if done {
			continue
		}

		body, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return applied, fmt.Errorf("[postgres.Migrate] read %s: %w", name, err)
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return applied, fmt.Errorf("[postgres.Migrate] begin: %w", err)
		}
		if _, err := tx.Exec(ctx, string(body)); err != nil {
			_ = tx.Rollback(ctx)
			return applied, fmt.Errorf("[postgres.Migrate] exec %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			_ = tx.Rollback(ctx)
			return applied, fmt.Errorf("[postgres.Migrate] record %s: %w", name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return applied, fmt.Errorf("[postgres.Migrate] commit %s: %w", name, err)
		}
		log.Info().Str("migration", name).Msg("migration applied")
		applied++
	}
	return applied, nil
}

// MigrateDown runs every *_down.sql file in reverse order and forgets the
// applied migrations.
func MigrateDown(ctx context.Context, pool *pgxpool.Pool) error {
	files, err := migrationFiles("_down.sql")
	if err != nil {
		return fmt.Errorf("[postgres.MigrateDown] %w", err)
	}
	for i := len(files) - 1; i >= 0; i-- {
		body, err := fs.ReadFile(migrations.FS, files[i])
		if err != nil {
			return fmt.Errorf("[postgres.MigrateDown] read %s: %w", files[i], err)
		}
		if _, err := pool.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("[postgres.MigrateDown] exec %s: %w", files[i], err)
		}
	}
	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS schema_migrations`); err != nil {
		return fmt.Errorf("[postgres.MigrateDown] %w", err)
	}
	return nil
}
