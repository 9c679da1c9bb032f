package fakeclientrepo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-tenant-server/clients"
	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/internal/rowversion"
)

var _ clients.Repo = (*FakeClientRepo)(nil)

type FakeClientRepo struct {
	clients map[int64]clients.Client
	nextID  int64
	nowTime func() time.Time
	lock    sync.RWMutex
}

func NewFakeClientRepo() *FakeClientRepo {
	return &FakeClientRepo{
		clients: make(map[int64]clients.Client),
		nowTime: time.Now,
	}
}

func (r *FakeClientRepo) Insert(_ context.Context, client *clients.Client) (rowversion.Created, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.nextID++
	now := r.nowTime()
	stored := *client
	stored.ID = r.nextID
	stored.Version = rowversion.Initial
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.DeletedAt = nil
	r.clients[stored.ID] = stored
	return rowversion.Created{ID: stored.ID, Version: stored.Version, CreatedAt: now, UpdatedAt: now}, nil
}

func (r *FakeClientRepo) Get(_ context.Context, companyID, id int64) (*clients.Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	client, ok := r.clients[id]
	if !ok || client.CompanyID != companyID || client.Deleted() {
		return nil, apperrors.ErrNotFound
	}
	return &client, nil
}

func (r *FakeClientRepo) List(_ context.Context, companyID int64, offset, limit int) ([]*clients.Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	list := make([]*clients.Client, 0)
	for _, v := range r.clients {
		if v.CompanyID != companyID || v.Deleted() {
			continue
		}
		client := v
		list = append(list, &client)
	}

	sort.Slice(list, func(i, j int) bool {
		a, b := strings.ToLower(list[i].Name), strings.ToLower(list[j].Name)
		if a != b {
			return a < b
		}
		return list[i].ID < list[j].ID
	})

	if offset >= len(list) {
		return []*clients.Client{}, nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end], nil
}

func (r *FakeClientRepo) UpdateBasics(_ context.Context, companyID, id, expectedVersion int64, basics clients.Basics) (rowversion.Stamp, error) {
	return r.write(companyID, id, expectedVersion, func(c *clients.Client) { c.Apply(basics) })
}

func (r *FakeClientRepo) SoftDelete(_ context.Context, companyID, id, expectedVersion int64) (rowversion.Stamp, error) {
	return r.write(companyID, id, expectedVersion, func(c *clients.Client) {
		deletedAt := r.nowTime()
		c.DeletedAt = &deletedAt
	})
}

// write applies fn only when every condition of the conditional update holds.
func (r *FakeClientRepo) write(companyID, id, expectedVersion int64, fn func(*clients.Client)) (rowversion.Stamp, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	client, ok := r.clients[id]
	if !ok || client.CompanyID != companyID || client.Deleted() || !rowversion.Matches(client.Version, expectedVersion) {
		return rowversion.Stamp{}, apperrors.ErrVersionConflict
	}
	stamp := rowversion.Next(client.Version, r.nowTime())
	fn(&client)
	client.Version = stamp.Version
	client.UpdatedAt = stamp.UpdatedAt
	r.clients[id] = client
	return stamp, nil
}
