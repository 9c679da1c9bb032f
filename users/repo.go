package users

import (
	"context"

	"github.com/jrsteele09/go-tenant-server/internal/rowversion"
)

// Repo stores users. Emails are passed already normalised.
//
// Insert reports a duplicate email as errors.ErrUniqueViolation; lookups report a
// missing user as errors.ErrUserNotFound; UpdateCredentials reports a stale or
// missing row as errors.ErrVersionConflict.
type Repo interface {
	Insert(ctx context.Context, user *User) (rowversion.Created, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateCredentials(ctx context.Context, id, expectedVersion int64, creds Credentials) (rowversion.Stamp, error)
}
