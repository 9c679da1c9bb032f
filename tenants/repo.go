package tenants

import (
	"context"

	"github.com/jrsteele09/go-tenant-server/internal/rowversion"
)

// Repo stores companies.
//
// Insert reports a duplicate (DocumentType, Document) as errors.ErrUniqueViolation.
// Get and GetByDocument return soft-deleted companies too; callers check Deleted.
// Conditional writes report a stale or missing row as errors.ErrVersionConflict.
type Repo interface {
	Insert(ctx context.Context, company *Company) (rowversion.Created, error)
	Get(ctx context.Context, id int64) (*Company, error)
	GetByDocument(ctx context.Context, docType DocumentType, document string) (*Company, error)
	GetMany(ctx context.Context, ids []int64) ([]*Company, error)
	UpdateBasics(ctx context.Context, id, expectedVersion int64, name string) (rowversion.Stamp, error)
	SoftDelete(ctx context.Context, id, expectedVersion int64) (rowversion.Stamp, error)
	Restore(ctx context.Context, id, expectedVersion int64) (rowversion.Stamp, error)
}
