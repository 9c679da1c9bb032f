package fakemembershiprepo

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/internal/rowversion"
	"github.com/jrsteele09/go-tenant-server/memberships"
)

var _ memberships.Repo = (*FakeMembershipRepo)(nil)

type pairKey struct {
	userID    int64
	companyID int64
}

type FakeMembershipRepo struct {
	rows    map[int64]memberships.Membership
	pairs   map[pairKey]int64
	nextID  int64
	nowTime func() time.Time
	lock    sync.RWMutex
}

func NewFakeMembershipRepo() *FakeMembershipRepo {
	return &FakeMembershipRepo{
		rows:    make(map[int64]memberships.Membership),
		pairs:   make(map[pairKey]int64),
		nowTime: time.Now,
	}
}

func (r *FakeMembershipRepo) Insert(_ context.Context, m *memberships.Membership) (rowversion.Created, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	key := pairKey{m.UserID, m.CompanyID}
	if _, ok := r.pairs[key]; ok {
		return rowversion.Created{}, apperrors.ErrUniqueViolation
	}
	r.nextID++
	now := r.nowTime()
	stored := *m
	stored.ID = r.nextID
	stored.Version = rowversion.Initial
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.DeletedAt = nil
	r.rows[stored.ID] = stored
	r.pairs[key] = stored.ID
	return rowversion.Created{ID: stored.ID, Version: stored.Version, CreatedAt: now, UpdatedAt: now}, nil
}

func (r *FakeMembershipRepo) Get(_ context.Context, userID, companyID int64) (*memberships.Membership, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	id, ok := r.pairs[pairKey{userID, companyID}]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	m := r.rows[id]
	return &m, nil
}

func (r *FakeMembershipRepo) Restore(_ context.Context, id, expectedVersion int64, admin bool) (rowversion.Stamp, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	m, ok := r.rows[id]
	if !ok || m.Active() || !rowversion.Matches(m.Version, expectedVersion) {
		return rowversion.Stamp{}, apperrors.ErrVersionConflict
	}
	stamp := rowversion.Next(m.Version, r.nowTime())
	m.DeletedAt = nil
	m.Admin = admin
	m.Version = stamp.Version
	m.UpdatedAt = stamp.UpdatedAt
	r.rows[id] = m
	return stamp, nil
}

func (r *FakeMembershipRepo) SoftDelete(_ context.Context, userID, companyID int64) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	id, ok := r.pairs[pairKey{userID, companyID}]
	if !ok {
		return false, nil
	}
	m := r.rows[id]
	if !m.Active() {
		return false, nil
	}
	now := r.nowTime()
	m.DeletedAt = &now
	m.Version++
	m.UpdatedAt = now
	r.rows[id] = m
	return true, nil
}

func (r *FakeMembershipRepo) SetAdmin(_ context.Context, id, expectedVersion int64, admin bool) (rowversion.Stamp, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	m, ok := r.rows[id]
	if !ok || !m.Active() || !rowversion.Matches(m.Version, expectedVersion) {
		return rowversion.Stamp{}, apperrors.ErrVersionConflict
	}
	stamp := rowversion.Next(m.Version, r.nowTime())
	m.Admin = admin
	m.Version = stamp.Version
	m.UpdatedAt = stamp.UpdatedAt
	r.rows[id] = m
	return stamp, nil
}

func (r *FakeMembershipRepo) ListActiveByUser(_ context.Context, userID int64) ([]*memberships.Membership, error) {
	return r.list(func(m memberships.Membership) bool { return m.UserID == userID }), nil
}

func (r *FakeMembershipRepo) ListActiveByCompany(_ context.Context, companyID int64) ([]*memberships.Membership, error) {
	return r.list(func(m memberships.Membership) bool { return m.CompanyID == companyID }), nil
}

func (r *FakeMembershipRepo) list(match func(memberships.Membership) bool) []*memberships.Membership {
	r.lock.RLock()
	defer r.lock.RUnlock()

	list := make([]*memberships.Membership, 0)
	for _, m := range r.rows {
		if m.Active() && match(m) {
			m := m
			list = append(list, &m)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}
