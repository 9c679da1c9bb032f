package tenantrepofakes

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/internal/rowversion"
	"github.com/jrsteele09/go-tenant-server/tenants"
)

var _ tenants.Repo = (*FakeTenantRepo)(nil)

type documentKey struct {
	docType  tenants.DocumentType
	document string
}

type FakeTenantRepo struct {
	tenants   map[int64]tenants.Company
	documents map[documentKey]int64
	nextID    int64
	nowTime   func() time.Time
	lock      sync.RWMutex
}

func NewFakeTenantRepo() *FakeTenantRepo {
	return &FakeTenantRepo{
		tenants:   make(map[int64]tenants.Company),
		documents: make(map[documentKey]int64),
		nowTime:   time.Now,
	}
}

func (tr *FakeTenantRepo) Insert(_ context.Context, company *tenants.Company) (rowversion.Created, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	key := documentKey{company.DocumentType, company.Document}
	if _, ok := tr.documents[key]; ok {
		return rowversion.Created{}, apperrors.ErrUniqueViolation
	}
	tr.nextID++
	now := tr.nowTime()
	stored := *company
	stored.ID = tr.nextID
	stored.Version = rowversion.Initial
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.DeletedAt = nil
	tr.tenants[stored.ID] = stored
	tr.documents[key] = stored.ID
	return rowversion.Created{ID: stored.ID, Version: stored.Version, CreatedAt: now, UpdatedAt: now}, nil
}

func (tr *FakeTenantRepo) Get(_ context.Context, id int64) (*tenants.Company, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	company, ok := tr.tenants[id]
	if !ok {
		return nil, apperrors.ErrTenantNotFound
	}
	return &company, nil
}

func (tr *FakeTenantRepo) GetByDocument(_ context.Context, docType tenants.DocumentType, document string) (*tenants.Company, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	id, ok := tr.documents[documentKey{docType, document}]
	if !ok {
		return nil, apperrors.ErrTenantNotFound
	}
	company := tr.tenants[id]
	return &company, nil
}

func (tr *FakeTenantRepo) GetMany(_ context.Context, ids []int64) ([]*tenants.Company, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	companies := make([]*tenants.Company, 0, len(ids))
	for _, id := range ids {
		if company, ok := tr.tenants[id]; ok {
			companies = append(companies, &company)
		}
	}
	return companies, nil
}

func (tr *FakeTenantRepo) UpdateBasics(_ context.Context, id, expectedVersion int64, name string) (rowversion.Stamp, error) {
	return tr.write(id, expectedVersion, false, func(c *tenants.Company) { c.Name = name })
}

func (tr *FakeTenantRepo) SoftDelete(_ context.Context, id, expectedVersion int64) (rowversion.Stamp, error) {
	return tr.write(id, expectedVersion, false, func(c *tenants.Company) {
		now := tr.nowTime()
		c.DeletedAt = &now
	})
}

func (tr *FakeTenantRepo) Restore(_ context.Context, id, expectedVersion int64) (rowversion.Stamp, error) {
	return tr.write(id, expectedVersion, true, func(c *tenants.Company) { c.DeletedAt = nil })
}

// write emulates UPDATE ... WHERE id = ? AND version = ? AND deleted_at IS [NOT] NULL.
func (tr *FakeTenantRepo) write(id, expectedVersion int64, wantDeleted bool, apply func(*tenants.Company)) (rowversion.Stamp, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	company, ok := tr.tenants[id]
	if !ok || !rowversion.Matches(company.Version, expectedVersion) || company.Deleted() != wantDeleted {
		return rowversion.Stamp{}, apperrors.ErrVersionConflict
	}
	apply(&company)
	stamp := rowversion.Next(company.Version, tr.nowTime())
	company.Version = stamp.Version
	company.UpdatedAt = stamp.UpdatedAt
	tr.tenants[id] = company
	return stamp, nil
}
