package sessions

import (
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
)

// TenantStore holds the active company for one session.
type TenantStore struct {
	session *Session
}

func (s *TenantStore) HasSelection() bool {
	_, ok := s.Selection()
	return ok
}

func (s *TenantStore) Selection() (TenantSelection, bool) {
	var (
		sel TenantSelection
		ok  bool
	)
	s.session.read(func(d *SessionData) {
		if d.Tenant != nil && d.Tenant.CompanyID > 0 {
			sel, ok = *d.Tenant, true
		}
	})
	return sel, ok
}

func (s *TenantStore) Select(companyID int64, companyName string, admin bool, at time.Time) error {
	if companyID <= 0 {
		return fmt.Errorf("[TenantStore.Select] company id %d: %w", companyID, apperrors.ErrInvalidArgument)
	}
	s.session.update(func(d *SessionData) {
		d.Tenant = &TenantSelection{
			CompanyID:   companyID,
			CompanyName: companyName,
			Admin:       admin,
			SelectedAt:  at,
		}
	})
	return nil
}

// Clear empties the selection without touching the identity.
func (s *TenantStore) Clear() {
	s.session.update(func(d *SessionData) {
		d.Tenant = nil
	})
}
