package sessions

import (
	"fmt"
	"strings"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
)

// IdentityStore holds who is logged in for one session.
type IdentityStore struct {
	session *Session
}

func (s *IdentityStore) IsLoggedIn() bool {
	var ok bool
	s.session.read(func(d *SessionData) {
		ok = d.Identity != nil && d.Identity.UserID > 0
	})
	return ok
}

// RequireUserID returns the logged-in user id or errors.ErrUnauthenticated.
func (s *IdentityStore) RequireUserID() (int64, error) {
	var id int64
	s.session.read(func(d *SessionData) {
		if d.Identity != nil {
			id = d.Identity.UserID
		}
	})
	if id <= 0 {
		return 0, apperrors.ErrUnauthenticated
	}
	return id, nil
}

// RequireEmail returns the logged-in email or errors.ErrUnauthenticated.
func (s *IdentityStore) RequireEmail() (string, error) {
	var email string
	s.session.read(func(d *SessionData) {
		if d.Identity != nil {
			email = d.Identity.Email
		}
	})
	if strings.TrimSpace(email) == "" {
		return "", apperrors.ErrUnauthenticated
	}
	return email, nil
}

// OnLogin replaces whatever identity the session held.
func (s *IdentityStore) OnLogin(userID int64, email string) error {
	if userID <= 0 {
		return fmt.Errorf("[IdentityStore.OnLogin] user id %d: %w", userID, apperrors.ErrInvalidArgument)
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("[IdentityStore.OnLogin] blank email: %w", apperrors.ErrInvalidArgument)
	}
	s.session.update(func(d *SessionData) {
		d.Identity = &Identity{UserID: userID, Email: email}
	})
	return nil
}

// Logout clears the identity unconditionally. The tenant selection is left alone.
func (s *IdentityStore) Logout() {
	s.session.update(func(d *SessionData) {
		d.Identity = nil
	})
}
