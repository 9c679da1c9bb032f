package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/internal/rowversion"
	"github.com/jrsteele09/go-tenant-server/tenants"
)

var _ tenants.Repo = (*TenantRepo)(nil)

const companyColumns = `id, name, document_type, document, version, created_at, updated_at, deleted_at`

type TenantRepo struct {
	pool *pgxpool.Pool
}

func NewTenantRepo(pool *pgxpool.Pool) *TenantRepo {
	return &TenantRepo{pool: pool}
}

func scanCompany(row pgx.Row) (*tenants.Company, error) {
	var c tenants.Company
	err := row.Scan(&c.ID, &c.Name, &c.DocumentType, &c.Document, &c.Version, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *TenantRepo) Insert(ctx context.Context, company *tenants.Company) (rowversion.Created, error) {
	created, err := scanCreated(r.pool.QueryRow(ctx, `
		INSERT INTO companies (name, document_type, document, version)
		VALUES ($1, $2, $3, $4)
		RETURNING id, version, created_at, updated_at`,
		company.Name, company.DocumentType, company.Document, rowversion.Initial,
	))
	if err != nil {
		return rowversion.Created{}, fmt.Errorf("[TenantRepo.Insert] %w", err)
	}
	return created, nil
}

func (r *TenantRepo) Get(ctx context.Context, id int64) (*tenants.Company, error) {
	company, err := scanCompany(r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("[TenantRepo.Get] %w", err)
	}
	return company, nil
}

func (r *TenantRepo) GetByDocument(ctx context.Context, docType tenants.DocumentType, document string) (*tenants.Company, error) {
	company, err := scanCompany(r.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE document_type = $1 AND document = $2`, docType, document))
	if err != nil {
		return nil, fmt.Errorf("[TenantRepo.GetByDocument] %w", err)
	}
	return company, nil
}

func (r *TenantRepo) GetMany(ctx context.Context, ids []int64) ([]*tenants.Company, error) {
	if len(ids) == 0 {
		return []*tenants.Company{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("[TenantRepo.GetMany] %w", err)
	}
	defer rows.Close()

	list := make([]*tenants.Company, 0, len(ids))
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("[TenantRepo.GetMany] scan: %w", err)
		}
		list = append(list, company)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("[TenantRepo.GetMany] %w", err)
	}
	return list, nil
}

func (r *TenantRepo) UpdateBasics(ctx context.Context, id, expectedVersion int64, name string) (rowversion.Stamp, error) {
	stamp, err := scanStamp(r.pool.QueryRow(ctx, `
		UPDATE companies SET name = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
		RETURNING version, updated_at`,
		id, expectedVersion, name,
	))
	if err != nil {
		return rowversion.Stamp{}, fmt.Errorf("[TenantRepo.UpdateBasics] %w", err)
	}
	return stamp, nil
}

func (r *TenantRepo) SoftDelete(ctx context.Context, id, expectedVersion int64) (rowversion.Stamp, error) {
	stamp, err := scanStamp(r.pool.QueryRow(ctx, `
		UPDATE companies SET deleted_at = now(), version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
		RETURNING version, updated_at`,
		id, expectedVersion,
	))
	if err != nil {
		return rowversion.Stamp{}, fmt.Errorf("[TenantRepo.SoftDelete] %w", err)
	}
	return stamp, nil
}

func (r *TenantRepo) Restore(ctx context.Context, id, expectedVersion int64) (rowversion.Stamp, error) {
	stamp, err := scanStamp(r.pool.QueryRow(ctx, `
		UPDATE companies SET deleted_at = NULL, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2 AND deleted_at IS NOT NULL
		RETURNING version, updated_at`,
		id, expectedVersion,
	))
	if err != nil {
		return rowversion.Stamp{}, fmt.Errorf("[TenantRepo.Restore] %w", err)
	}
	return stamp, nil
}
