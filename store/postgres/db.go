// Package postgres implements every repository on PostgreSQL through pgx.
//
// Each conditional write is a single UPDATE ... WHERE id AND version [AND company]
// [AND deleted_at IS NULL] RETURNING version, updated_at. No row back means the
// precondition failed and is reported as errors.ErrVersionConflict.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/internal/rowversion"
)

const uniqueViolation = "23505"

// NewPool connects to databaseURL and pings it so a bad DSN fails at startup.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("[postgres.NewPool] parse config: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("[postgres.NewPool] create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("[postgres.NewPool] ping: %w", err)
	}
	return pool, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return apperrors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// scanCreated reads the RETURNING id, version, created_at, updated_at of an insert.
func scanCreated(row pgx.Row) (rowversion.Created, error) {
	var c rowversion.Created
	err := row.Scan(&c.ID, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if isUniqueViolation(err) {
		return rowversion.Created{}, apperrors.ErrUniqueViolation
	}
	if err != nil {
		return rowversion.Created{}, err
	}
	return c, nil
}

// scanStamp reads the RETURNING version, updated_at of a conditional write.
func scanStamp(row pgx.Row) (rowversion.Stamp, error) {
	var s rowversion.Stamp
	err := row.Scan(&s.Version, &s.UpdatedAt)
	if apperrors.Is(err, pgx.ErrNoRows) {
		return rowversion.Stamp{}, apperrors.ErrVersionConflict
	}
	if err != nil {
		return rowversion.Stamp{}, err
	}
	return s, nil
}
