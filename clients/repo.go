package clients

import (
	"context"

	"github.com/jrsteele09/go-tenant-server/internal/rowversion"
)

// Repo stores clients. Every call is confined to companyID: a client of another
// company behaves exactly like a missing one.
//
// Get reports missing or soft-deleted clients as errors.ErrNotFound. Conditional
// writes match id, expected version, company and not-deleted in one statement
// and report zero matched rows as errors.ErrVersionConflict.
type Repo interface {
	Insert(ctx context.Context, client *Client) (rowversion.Created, error)
	Get(ctx context.Context, companyID, id int64) (*Client, error)
	List(ctx context.Context, companyID int64, offset, limit int) ([]*Client, error)
	UpdateBasics(ctx context.Context, companyID, id, expectedVersion int64, basics Basics) (rowversion.Stamp, error)
	SoftDelete(ctx context.Context, companyID, id, expectedVersion int64) (rowversion.Stamp, error)
}
