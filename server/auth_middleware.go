package server

import (
	"net/http"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/sessions"
)

// RequireIdentity rejects requests whose session has no logged-in user.
func (s *Server) RequireIdentity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := sessions.IdentityFrom(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !identity.IsLoggedIn() {
			writeError(w, r, apperrors.ErrUnauthenticated)
			return
		}
		next(w, r)
	}
}

// RequireTenant rejects requests without a selected company, and drops a selection
// whose membership has since been removed or whose company has been deleted.
func (s *Server) RequireTenant(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if _, err := s.svc.Tenancy.VerifySelection(r.Context(), userID); err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r)
	}
}

// RequireTenantAdmin rejects users who are not currently an admin of the selected company.
func (s *Server) RequireTenantAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		companyID, err := s.svc.Tenancy.ActiveCompanyID(ctx)
		if err != nil {
			writeError(w, r, err)
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		admin, err := s.svc.Memberships.IsAdmin(ctx, userID, companyID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !admin {
			writeError(w, r, apperrors.ErrForbidden)
			return
		}
		next(w, r)
	}
}

func currentUserID(r *http.Request) (int64, error) {
	identity, err := sessions.IdentityFrom(r.Context())
	if err != nil {
		return 0, err
	}
	return identity.RequireUserID()
}
