package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
)

// Manager owns the session lifecycle: create on first access, persist when
// changed, destroy on demand.
type Manager struct {
	repo    Repo
	ttl     time.Duration
	nowTime func() time.Time
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

func NewManager(repo Repo, ttl time.Duration, options ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[NewManager] session repo is required")
	}
	if ttl <= 0 {
		return nil, errors.New("[NewManager] ttl must be positive")
	}
	m := &Manager{repo: repo, ttl: ttl, nowTime: time.Now}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Load returns the stored session for sessionID, or a fresh one when the id is
// empty, unknown or expired.
func (m *Manager) Load(ctx context.Context, sessionID string) (*Session, error) {
	now := m.nowTime()
	if sessionID != "" {
		data, err := m.repo.Get(ctx, sessionID)
		switch {
		case err == nil && data.ExpiresAt.After(now):
			return newSession(*data, false), nil
		case err == nil:
			_ = m.repo.Delete(ctx, sessionID)
		case !apperrors.Is(err, apperrors.ErrSessionNotFound):
			return nil, fmt.Errorf("[Manager.Load] repo.Get: %w", err)
		}
	}
	return newSession(SessionData{
		ID:        uuid.New().String(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}, true), nil
}

// Save persists the session if it changed, or if less than half its lifetime is
// left, sliding the expiry forward. It reports whether a write happened.
func (m *Manager) Save(ctx context.Context, s *Session) (bool, error) {
	now := m.nowTime()
	data := s.Snapshot()
	if !s.Dirty() && data.ExpiresAt.Sub(now) > m.ttl/2 {
		return false, nil
	}
	data.ExpiresAt = now.Add(m.ttl)
	if err := m.repo.Upsert(ctx, &data); err != nil {
		return false, fmt.Errorf("[Manager.Save] repo.Upsert: %w", err)
	}
	s.markSaved(data.ExpiresAt)
	return true, nil
}

// Regenerate moves the session to a fresh id and drops the old one from storage,
// so a cookie issued before a login cannot reach the logged-in session.
func (m *Manager) Regenerate(ctx context.Context, s *Session) error {
	oldID := s.ID()
	s.update(func(d *SessionData) {
		d.ID = uuid.New().String()
	})
	if err := m.repo.Delete(ctx, oldID); err != nil {
		return fmt.Errorf("[Manager.Regenerate] repo.Delete: %w", err)
	}
	return nil
}

// Destroy removes the session from storage.
func (m *Manager) Destroy(ctx context.Context, s *Session) error {
	if err := m.repo.Delete(ctx, s.ID()); err != nil {
		return fmt.Errorf("[Manager.Destroy] repo.Delete: %w", err)
	}
	return nil
}
