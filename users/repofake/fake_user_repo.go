package fakeuserrepo

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/internal/rowversion"
	"github.com/jrsteele09/go-tenant-server/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

// FakeUserRepo is an in-memory users.Repo. Stored users are copied in and out so
// callers never share memory with the store.
type FakeUserRepo struct {
	users    map[int64]users.User
	emailIds map[string]int64 // email to user id
	nextID   int64
	nowTime  func() time.Time
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[int64]users.User),
		emailIds: make(map[string]int64),
		nowTime:  time.Now,
	}
}

func (ur *FakeUserRepo) Insert(_ context.Context, user *users.User) (rowversion.Created, error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.emailIds[user.Email]; ok {
		return rowversion.Created{}, apperrors.ErrUniqueViolation
	}
	ur.nextID++
	now := ur.nowTime()
	created := rowversion.Created{ID: ur.nextID, Version: rowversion.Initial, CreatedAt: now, UpdatedAt: now}

	stored := *user
	stored.ID = created.ID
	stored.Version = created.Version
	stored.CreatedAt = now
	stored.UpdatedAt = now
	ur.users[stored.ID] = stored
	ur.emailIds[stored.Email] = stored.ID
	return created, nil
}

func (ur *FakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[email]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	user := ur.users[id]
	return &user, nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id int64) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return &user, nil
}

func (ur *FakeUserRepo) UpdateCredentials(_ context.Context, id, expectedVersion int64, creds users.Credentials) (rowversion.Stamp, error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if !creds.Valid() {
		return rowversion.Stamp{}, apperrors.ErrInvalidArgument
	}
	user, ok := ur.users[id]
	if !ok || !rowversion.Matches(user.Version, expectedVersion) {
		return rowversion.Stamp{}, apperrors.ErrVersionConflict
	}
	stamp := rowversion.Next(user.Version, ur.nowTime())
	user.PasswordHash = creds.PasswordHash
	user.ProvisionalHash = creds.ProvisionalHash
	user.EmailConfirmedAt = creds.EmailConfirmedAt
	user.Version = stamp.Version
	user.UpdatedAt = stamp.UpdatedAt
	ur.users[id] = user
	return stamp, nil
}
