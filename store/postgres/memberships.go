package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/internal/rowversion"
	"github.com/jrsteele09/go-tenant-server/memberships"
)

var _ memberships.Repo = (*MembershipRepo)(nil)

const membershipColumns = `id, user_id, company_id, created_by, admin, version, created_at, updated_at, deleted_at`

type MembershipRepo struct {
	pool *pgxpool.Pool
}

func NewMembershipRepo(pool *pgxpool.Pool) *MembershipRepo {
	return &MembershipRepo{pool: pool}
}

func scanMembership(row pgx.Row) (*memberships.Membership, error) {
	var m memberships.Membership
	err := row.Scan(&m.ID, &m.UserID, &m.CompanyID, &m.CreatedBy, &m.Admin, &m.Version, &m.CreatedAt, &m.UpdatedAt, &m.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MembershipRepo) Insert(ctx context.Context, m *memberships.Membership) (rowversion.Created, error) {
	created, err := scanCreated(r.pool.QueryRow(ctx, `
		INSERT INTO memberships (user_id, company_id, created_by, admin, version)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, version, created_at, updated_at`,
		m.UserID, m.CompanyID, m.CreatedBy, m.Admin, rowversion.Initial,
	))
	if err != nil {
		return rowversion.Created{}, fmt.Errorf("[MembershipRepo.Insert] %w", err)
	}
	return created, nil
}

func (r *MembershipRepo) Get(ctx context.Context, userID, companyID int64) (*memberships.Membership, error) {
	m, err := scanMembership(r.pool.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 AND company_id = $2`, userID, companyID))
	if err != nil {
		return nil, fmt.Errorf("[MembershipRepo.Get] %w", err)
	}
	return m, nil
}

func (r *MembershipRepo) Restore(ctx context.Context, id, expectedVersion int64, admin bool) (rowversion.Stamp, error) {
	stamp, err := scanStamp(r.pool.QueryRow(ctx, `
		UPDATE memberships SET deleted_at = NULL, admin = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2 AND deleted_at IS NOT NULL
		RETURNING version, updated_at`,
		id, expectedVersion, admin,
	))
	if err != nil {
		return rowversion.Stamp{}, fmt.Errorf("[MembershipRepo.Restore] %w", err)
	}
	return stamp, nil
}

func (r *MembershipRepo) SoftDelete(ctx context.Context, userID, companyID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE memberships SET deleted_at = now(), version = version + 1, updated_at = now()
		WHERE user_id = $1 AND company_id = $2 AND deleted_at IS NULL`,
		userID, companyID,
	)
	if err != nil {
		return false, fmt.Errorf("[MembershipRepo.SoftDelete] %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *MembershipRepo) SetAdmin(ctx context.Context, id, expectedVersion int64, admin bool) (rowversion.Stamp, error) {
	stamp, err := scanStamp(r.pool.QueryRow(ctx, `
		UPDATE memberships SET admin = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
		RETURNING version, updated_at`,
		id, expectedVersion, admin,
	))
	if err != nil {
		return rowversion.Stamp{}, fmt.Errorf("[MembershipRepo.SetAdmin] %w", err)
	}
	return stamp, nil
}

func (r *MembershipRepo) ListActiveByUser(ctx context.Context, userID int64) ([]*memberships.Membership, error) {
	return r.list(ctx, `SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 AND deleted_at IS NULL ORDER BY company_id`, userID)
}

func (r *MembershipRepo) ListActiveByCompany(ctx context.Context, companyID int64) ([]*memberships.Membership, error) {
	return r.list(ctx, `SELECT `+membershipColumns+` FROM memberships WHERE company_id = $1 AND deleted_at IS NULL ORDER BY user_id`, companyID)
}

func (r *MembershipRepo) list(ctx context.Context, query string, arg int64) ([]*memberships.Membership, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("[MembershipRepo.list] %w", err)
	}
	defer rows.Close()

	list := make([]*memberships.Membership, 0)
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("[MembershipRepo.list] scan: %w", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("[MembershipRepo.list] %w", err)
	}
	return list, nil
}
