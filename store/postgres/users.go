package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/internal/rowversion"
	"github.com/jrsteele09/go-tenant-server/users"
)

var _ users.Repo = (*UserRepo)(nil)

const userColumns = `id, email, name, password_hash, provisional_hash, email_confirmed_at, version, created_at, updated_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func scanUser(row pgx.Row) (*users.User, error) {
	var u users.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.ProvisionalHash, &u.EmailConfirmedAt, &u.Version, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Insert(ctx context.Context, user *users.User) (rowversion.Created, error) {
	created, err := scanCreated(r.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, provisional_hash, email_confirmed_at, version)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, version, created_at, updated_at`,
		user.Email, user.Name, user.PasswordHash, user.ProvisionalHash, user.EmailConfirmedAt, rowversion.Initial,
	))
	if err != nil {
		return rowversion.Created{}, fmt.Errorf("[UserRepo.Insert] %w", err)
	}
	return created, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*users.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("[UserRepo.GetByID] %w", err)
	}
	return user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, fmt.Errorf("[UserRepo.GetByEmail] %w", err)
	}
	return user, nil
}

func (r *UserRepo) UpdateCredentials(ctx context.Context, id, expectedVersion int64, creds users.Credentials) (rowversion.Stamp, error) {
	if !creds.Valid() {
		return rowversion.Stamp{}, fmt.Errorf("[UserRepo.UpdateCredentials] user %d would have no credential: %w", id, apperrors.ErrInvalidArgument)
	}
	stamp, err := scanStamp(r.pool.QueryRow(ctx, `
		UPDATE users
		SET password_hash = $3, provisional_hash = $4, email_confirmed_at = $5,
		    version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`,
		id, expectedVersion, creds.PasswordHash, creds.ProvisionalHash, creds.EmailConfirmedAt,
	))
	if err != nil {
		return rowversion.Stamp{}, fmt.Errorf("[UserRepo.UpdateCredentials] %w", err)
	}
	return stamp, nil
}
