package memberships

import (
	"context"

	"github.com/jrsteele09/go-tenant-server/internal/rowversion"
)

// Repo stores memberships. (UserID, CompanyID) is unique across all rows,
// deleted or not.
type Repo interface {
	// Insert reports an existing pair as errors.ErrUniqueViolation.
	Insert(ctx context.Context, membership *Membership) (rowversion.Created, error)

	// Get returns the pair's row whatever its state, or errors.ErrNotFound.
	Get(ctx context.Context, userID, companyID int64) (*Membership, error)

	// Restore revives a soft-deleted row. Live or stale rows give errors.ErrVersionConflict.
	Restore(ctx context.Context, id, expectedVersion int64, admin bool) (rowversion.Stamp, error)

	// SoftDelete marks the pair's active row deleted and reports whether a row changed.
	SoftDelete(ctx context.Context, userID, companyID int64) (bool, error)

	// SetAdmin flips the admin flag on a live row.
	SetAdmin(ctx context.Context, id, expectedVersion int64, admin bool) (rowversion.Stamp, error)

	ListActiveByUser(ctx context.Context, userID int64) ([]*Membership, error)
	ListActiveByCompany(ctx context.Context, companyID int64) ([]*Membership, error)
}
