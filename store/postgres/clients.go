package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-tenant-server/clients"
	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/internal/rowversion"
)

var _ clients.Repo = (*ClientRepo)(nil)

const clientColumns = `id, company_id, name, email, phone, document, notes, version, created_at, updated_at, deleted_at`

type ClientRepo struct {
	pool *pgxpool.Pool
}

func NewClientRepo(pool *pgxpool.Pool) *ClientRepo {
	return &ClientRepo{pool: pool}
}

func scanClient(row pgx.Row) (*clients.Client, error) {
	var c clients.Client
	err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.Phone, &c.Document, &c.Notes, &c.Version, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ClientRepo) Insert(ctx context.Context, c *clients.Client) (rowversion.Created, error) {
	created, err := scanCreated(r.pool.QueryRow(ctx, `
		INSERT INTO clients (company_id, name, email, phone, document, notes, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, version, created_at, updated_at`,
		c.CompanyID, c.Name, c.Email, c.Phone, c.Document, c.Notes, rowversion.Initial,
	))
	if err != nil {
		return rowversion.Created{}, fmt.Errorf("[ClientRepo.Insert] %w", err)
	}
	return created, nil
}

func (r *ClientRepo) Get(ctx context.Context, companyID, id int64) (*clients.Client, error) {
	c, err := scanClient(r.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`, id, companyID))
	if err != nil {
		return nil, fmt.Errorf("[ClientRepo.Get] %w", err)
	}
	return c, nil
}

func (r *ClientRepo) List(ctx context.Context, companyID int64, offset, limit int) ([]*clients.Client, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+clientColumns+` FROM clients
		WHERE company_id = $1 AND deleted_at IS NULL
		ORDER BY lower(name), id
		OFFSET $2 LIMIT $3`,
		companyID, offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("[ClientRepo.List] %w", err)
	}
	defer rows.Close()

	list := make([]*clients.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("[ClientRepo.List] scan: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("[ClientRepo.List] %w", err)
	}
	return list, nil
}

func (r *ClientRepo) UpdateBasics(ctx context.Context, companyID, id, expectedVersion int64, b clients.Basics) (rowversion.Stamp, error) {
	stamp, err := scanStamp(r.pool.QueryRow(ctx, `
		UPDATE clients
		SET name = $4, email = $5, phone = $6, document = $7, notes = $8,
		    version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2 AND company_id = $3 AND deleted_at IS NULL
		RETURNING version, updated_at`,
		id, expectedVersion, companyID, b.Name, b.Email, b.Phone, b.Document, b.Notes,
	))
	if err != nil {
		return rowversion.Stamp{}, fmt.Errorf("[ClientRepo.UpdateBasics] %w", err)
	}
	return stamp, nil
}

func (r *ClientRepo) SoftDelete(ctx context.Context, companyID, id, expectedVersion int64) (rowversion.Stamp, error) {
	stamp, err := scanStamp(r.pool.QueryRow(ctx, `
		UPDATE clients SET deleted_at = now(), version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2 AND company_id = $3 AND deleted_at IS NULL
		RETURNING version, updated_at`,
		id, expectedVersion, companyID,
	))
	if err != nil {
		return rowversion.Stamp{}, fmt.Errorf("[ClientRepo.SoftDelete] %w", err)
	}
	return stamp, nil
}
