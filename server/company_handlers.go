package server

import (
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/memberships"
	"github.com/jrsteele09/go-tenant-server/sessions"
	"github.com/jrsteele09/go-tenant-server/tenancy"
	"github.com/jrsteele09/go-tenant-server/tenants"
	"github.com/jrsteele09/go-tenant-server/users"
	"github.com/rs/zerolog"
)

type createCompanyResponse struct {
	Company   *tenants.Company          `json:"company"`
	Selection *sessions.TenantSelection `json:"selection,omitempty"`
}

type orphanCompanyResponse struct {
	errorResponse
	CompanyID int64 `json:"companyId"`
}

type renameCompanyRequest struct {
	Name    string `json:"name"`
	Version int64  `json:"version"`
}

type versionRequest struct {
	Version int64 `json:"version"`
}

type choicesResponse struct {
	Choices []memberships.Choice `json:"choices"`
}

type selectCompanyRequest struct {
	CompanyID int64 `json:"companyId"`
}

type membersResponse struct {
	Members []*memberships.Membership `json:"members"`
}

type addMemberRequest struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Admin  bool   `json:"admin"`
}

type addMemberResponse struct {
	MembershipID int64 `json:"membershipId"`
	Admin        bool  `json:"admin"`
}

type setAdminRequest struct {
	Admin bool `json:"admin"`
}

// CreateCompanyHandler registers a company owned by the logged-in user and selects it.
func (s *Server) CreateCompanyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tenancy.NewCompany
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		ctx := r.Context()
		company, err := s.svc.Tenancy.CreateCompany(ctx, req)
		switch {
		case company == nil:
			writeError(w, r, err)
			return
		case apperrors.Is(err, apperrors.ErrOrphanCompany):
			zerolog.Ctx(ctx).Error().Err(err).Int64("company_id", company.ID).Msg("orphan company")
			writeJSON(w, http.StatusInternalServerError, orphanCompanyResponse{
				errorResponse: errorResponse{Error: "orphan_company", Message: apperrors.ErrOrphanCompany.Error()},
				CompanyID:     company.ID,
			})
			return
		case err != nil:
			zerolog.Ctx(ctx).Warn().Err(err).Int64("company_id", company.ID).Msg("company created but not selected")
		}

		resp := createCompanyResponse{Company: company}
		if sel, err := s.svc.Tenancy.ActiveSelection(ctx); err == nil && sel.CompanyID == company.ID {
			resp.Selection = &sel
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

// RenameCompanyHandler renames the selected company; the service checks admin rights.
func (s *Server) RenameCompanyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req renameCompanyRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.Version <= 0 {
			writeError(w, r, fmt.Errorf("version is required: %w", apperrors.ErrInvalidArgument))
			return
		}
		stamp, err := s.svc.Tenancy.RenameCompany(r.Context(), req.Version, req.Name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stamp)
	}
}

// DeleteCompanyHandler soft-deletes the selected company at ?version=.
func (s *Server) DeleteCompanyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version, err := queryInt(r, "version", 0)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if version <= 0 {
			writeError(w, r, fmt.Errorf("version is required: %w", apperrors.ErrInvalidArgument))
			return
		}
		stamp, err := s.svc.Tenancy.DeleteCompany(r.Context(), int64(version))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stamp)
	}
}

func (s *Server) RestoreCompanyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req versionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		stamp, err := s.svc.Tenancy.RestoreCompany(r.Context(), companyID, req.Version)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stamp)
	}
}

func (s *Server) CompanyChoicesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		choices, err := s.svc.Memberships.ChoicesFor(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, choicesResponse{Choices: choices})
	}
}

func (s *Server) SelectCompanyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectCompanyRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.CompanyID <= 0 {
			writeError(w, r, fmt.Errorf("companyId %d: %w", req.CompanyID, apperrors.ErrInvalidArgument))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		sel, err := s.svc.Tenancy.SelectCompanyForUser(r.Context(), userID, req.CompanyID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sel)
	}
}

func (s *Server) ClearSelectionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.svc.Tenancy.ClearSelection(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) ListMembersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, err := s.svc.Tenancy.ActiveCompanyID(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		members, err := s.svc.Memberships.Members(r.Context(), companyID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, membersResponse{Members: members})
	}
}

// AddMemberHandler links a user, by id or email, to the selected company and
// answers 201. An existing member is left unchanged and answered with 200 and
// their current admin flag; PUT /companies/members/{userId}/admin changes it.
func (s *Server) AddMemberHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addMemberRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		ctx := r.Context()
		companyID, err := s.svc.Tenancy.ActiveCompanyID(ctx)
		if err != nil {
			writeError(w, r, err)
			return
		}
		adminID, err := currentUserID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		userID, err := s.resolveMember(r, req)
		if err != nil {
			writeError(w, r, err)
			return
		}

		existing, err := s.svc.Memberships.Active(ctx, userID, companyID)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, addMemberResponse{MembershipID: existing.ID, Admin: existing.Admin})
			return
		case !apperrors.Is(err, apperrors.ErrNotAMember):
			writeError(w, r, err)
			return
		}

		link := s.svc.Memberships.LinkMember
		if req.Admin {
			link = s.svc.Memberships.LinkAsAdmin
		}
		membershipID, err := link(ctx, adminID, userID, companyID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, addMemberResponse{MembershipID: membershipID, Admin: req.Admin})
	}
}

func (s *Server) resolveMember(r *http.Request, req addMemberRequest) (int64, error) {
	if req.UserID > 0 {
		user, err := s.svc.Users.GetByID(r.Context(), req.UserID)
		if err != nil {
			return 0, err
		}
		return user.ID, nil
	}
	if req.Email == "" {
		return 0, fmt.Errorf("userId or email is required: %w", apperrors.ErrInvalidArgument)
	}
	user, err := s.svc.Users.GetByEmail(r.Context(), users.NormaliseEmail(req.Email))
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (s *Server) RemoveMemberHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathID(r, "userId")
		if err != nil {
			writeError(w, r, err)
			return
		}
		companyID, err := s.svc.Tenancy.ActiveCompanyID(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		existed, err := s.svc.Memberships.Unlink(r.Context(), userID, companyID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !existed {
			writeError(w, r, fmt.Errorf("membership of user %d: %w", userID, apperrors.ErrNotFound))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) SetMemberAdminHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathID(r, "userId")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req setAdminRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		companyID, err := s.svc.Tenancy.ActiveCompanyID(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		stamp, err := s.svc.Memberships.SetAdmin(r.Context(), userID, companyID, req.Admin)
		if apperrors.Is(err, apperrors.ErrNotAMember) {
			writeError(w, r, fmt.Errorf("membership of user %d: %w", userID, apperrors.ErrNotFound))
			return
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stamp)
	}
}
