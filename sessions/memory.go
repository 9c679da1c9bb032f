package sessions

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	gocache "github.com/patrickmn/go-cache"
)

var _ Repo = (*MemoryRepo)(nil)

// MemoryRepo keeps sessions in process. Expired entries are swept by go-cache's
// janitor every cleanupInterval.
type MemoryRepo struct {
	cache   *gocache.Cache
	nowTime func() time.Time
}

func NewMemoryRepo(cleanupInterval time.Duration) *MemoryRepo {
	return &MemoryRepo{
		cache:   gocache.New(gocache.NoExpiration, cleanupInterval),
		nowTime: time.Now,
	}
}

func (r *MemoryRepo) Get(_ context.Context, sessionID string) (*SessionData, error) {
	v, ok := r.cache.Get(sessionID)
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	data, ok := v.(SessionData)
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	clone := data.Clone()
	return &clone, nil
}

func (r *MemoryRepo) Upsert(_ context.Context, data *SessionData) error {
	if data == nil || data.ID == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidArgument, "[MemoryRepo.Upsert] session id is required")
	}
	ttl := data.ExpiresAt.Sub(r.nowTime())
	if ttl <= 0 {
		r.cache.Delete(data.ID)
		return nil
	}
	r.cache.Set(data.ID, data.Clone(), ttl)
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, sessionID string) error {
	r.cache.Delete(sessionID)
	return nil
}

// Count reports how many sessions are held, expired ones included until swept.
func (r *MemoryRepo) Count() int {
	return r.cache.ItemCount()
}
