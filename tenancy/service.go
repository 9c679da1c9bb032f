// Package tenancy activates companies for a session and creates new ones.
package tenancy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/internal/metrics"
	"github.com/jrsteele09/go-tenant-server/internal/rowversion"
	"github.com/jrsteele09/go-tenant-server/memberships"
	"github.com/jrsteele09/go-tenant-server/sessions"
	"github.com/jrsteele09/go-tenant-server/tenants"
	"github.com/rs/zerolog"
)

const (
	modeExplicit = "explicit"
	modeAuto     = "auto"
	modeCreated  = "created"
)

// Service is the tenant selection service. The session it acts on is always
// the one carried by ctx.
type Service struct {
	memberships *memberships.Service
	companies   tenants.Repo
	nowTime     func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(memberships *memberships.Service, companies tenants.Repo, options ...ServiceOption) (*Service, error) {
	if memberships == nil {
		return nil, errors.New("[tenancy.NewService] membership service is required")
	}
	if companies == nil {
		return nil, errors.New("[tenancy.NewService] company repo is required")
	}
	s := &Service{memberships: memberships, companies: companies, nowTime: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Service) HasSelection(ctx context.Context) bool {
	store, err := sessions.TenantFrom(ctx)
	if err != nil {
		return false
	}
	return store.HasSelection()
}

// ActiveCompanyID returns the selected company or errors.ErrNoTenantSelected.
func (s *Service) ActiveCompanyID(ctx context.Context) (int64, error) {
	sel, err := s.ActiveSelection(ctx)
	if err != nil {
		return 0, err
	}
	return sel.CompanyID, nil
}

func (s *Service) ActiveSelection(ctx context.Context) (sessions.TenantSelection, error) {
	store, err := sessions.TenantFrom(ctx)
	if err != nil {
		return sessions.TenantSelection{}, apperrors.ErrNoTenantSelected
	}
	sel, ok := store.Selection()
	if !ok {
		return sessions.TenantSelection{}, apperrors.ErrNoTenantSelected
	}
	return sel, nil
}

// SelectCompanyForUser activates companyID for the session after checking that
// userID holds an active membership in a live company.
func (s *Service) SelectCompanyForUser(ctx context.Context, userID, companyID int64) (sessions.TenantSelection, error) {
	return s.selectCompany(ctx, userID, companyID, modeExplicit)
}

func (s *Service) selectCompany(ctx context.Context, userID, companyID int64, mode string) (sessions.TenantSelection, error) {
	store, err := sessions.TenantFrom(ctx)
	if err != nil {
		return sessions.TenantSelection{}, fmt.Errorf("[Service.SelectCompanyForUser] %w", err)
	}

	membership, err := s.memberships.Active(ctx, userID, companyID)
	if err != nil {
		return sessions.TenantSelection{}, fmt.Errorf("[Service.SelectCompanyForUser] user %d company %d: %w", userID, companyID, err)
	}
	company, err := s.companies.Get(ctx, companyID)
	if err != nil {
		return sessions.TenantSelection{}, fmt.Errorf("[Service.SelectCompanyForUser] company %d: %w", companyID, err)
	}
	if company.Deleted() {
		return sessions.TenantSelection{}, fmt.Errorf("[Service.SelectCompanyForUser] company %d is deleted: %w", companyID, apperrors.ErrTenantNotFound)
	}

	if err := store.Select(company.ID, company.Name, membership.Admin, s.nowTime()); err != nil {
		return sessions.TenantSelection{}, fmt.Errorf("[Service.SelectCompanyForUser] %w", err)
	}
	metrics.ObserveSelection(mode)
	zerolog.Ctx(ctx).Info().
		Int64("user_id", userID).
		Int64("company_id", companyID).
		Str("mode", mode).
		Msg("tenant selected")

	sel, _ := store.Selection()
	return sel, nil
}

// VerifySelection re-checks the session's selection for userID against storage.
// A selection whose membership was removed or whose company was deleted is cleared.
func (s *Service) VerifySelection(ctx context.Context, userID int64) (sessions.TenantSelection, error) {
	sel, err := s.ActiveSelection(ctx)
	if err != nil {
		return sessions.TenantSelection{}, err
	}
	if _, err := s.memberships.Active(ctx, userID, sel.CompanyID); err != nil {
		if apperrors.Is(err, apperrors.ErrNotAMember) {
			s.dropSelection(ctx, sel, "membership gone")
		}
		return sessions.TenantSelection{}, fmt.Errorf("[Service.VerifySelection] %w", err)
	}
	company, err := s.companies.Get(ctx, sel.CompanyID)
	switch {
	case apperrors.Is(err, apperrors.ErrTenantNotFound):
		s.dropSelection(ctx, sel, "company gone")
		return sessions.TenantSelection{}, fmt.Errorf("[Service.VerifySelection] company %d: %w", sel.CompanyID, err)
	case err != nil:
		return sessions.TenantSelection{}, fmt.Errorf("[Service.VerifySelection] company %d: %w", sel.CompanyID, err)
	case company.Deleted():
		s.dropSelection(ctx, sel, "company deleted")
		return sessions.TenantSelection{}, fmt.Errorf("[Service.VerifySelection] company %d is deleted: %w", sel.CompanyID, apperrors.ErrTenantNotFound)
	}
	return sel, nil
}

func (s *Service) dropSelection(ctx context.Context, sel sessions.TenantSelection, reason string) {
	zerolog.Ctx(ctx).Info().Int64("company_id", sel.CompanyID).Str("reason", reason).Msg("clearing stale selection")
	if err := s.ClearSelection(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("clear stale selection")
	}
}

// EnsureAutoSelectionIfSingle selects the user's only company when nothing is
// selected yet. Zero or several choices leave the session untouched.
func (s *Service) EnsureAutoSelectionIfSingle(ctx context.Context, userID int64) (bool, error) {
	if s.HasSelection(ctx) {
		return false, nil
	}
	choices, err := s.memberships.ChoicesFor(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("[Service.EnsureAutoSelectionIfSingle] %w", err)
	}
	if len(choices) != 1 {
		return false, nil
	}
	if _, err := s.selectCompany(ctx, userID, choices[0].CompanyID, modeAuto); err != nil {
		return false, fmt.Errorf("[Service.EnsureAutoSelectionIfSingle] %w", err)
	}
	return true, nil
}

// ClearSelection empties the tenant store, leaving the identity logged in.
func (s *Service) ClearSelection(ctx context.Context) error {
	store, err := sessions.TenantFrom(ctx)
	if err != nil {
		return fmt.Errorf("[Service.ClearSelection] %w", err)
	}
	store.Clear()
	return nil
}

// NewCompany is the input to CreateCompany.
type NewCompany struct {
	Name         string               `json:"name"`
	DocumentType tenants.DocumentType `json:"documentType"`
	Document     string               `json:"document"`
}

// CreateCompany registers a company, links the logged-in user as its admin and
// selects it. When the link fails the company exists without an admin and the
// error wraps errors.ErrOrphanCompany; the caller decides how to recover.
func (s *Service) CreateCompany(ctx context.Context, input NewCompany) (*tenants.Company, error) {
	userID, err := s.requireUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("[Service.CreateCompany] %w", err)
	}

	name := strings.TrimSpace(input.Name)
	document := tenants.NormaliseDocument(input.Document)
	if name == "" || document == "" || input.DocumentType == "" {
		return nil, fmt.Errorf("[Service.CreateCompany] name, document type and document are required: %w", apperrors.ErrInvalidArgument)
	}

	_, err = s.companies.GetByDocument(ctx, input.DocumentType, document)
	switch {
	case err == nil:
		return nil, fmt.Errorf("[Service.CreateCompany] %s %s: %w", input.DocumentType, document, apperrors.ErrDuplicateDocument)
	case !apperrors.Is(err, apperrors.ErrTenantNotFound):
		return nil, fmt.Errorf("[Service.CreateCompany] companies.GetByDocument: %w", err)
	}

	company := &tenants.Company{Name: name, DocumentType: input.DocumentType, Document: document}
	created, err := s.companies.Insert(ctx, company)
	if apperrors.Is(err, apperrors.ErrUniqueViolation) {
		return nil, fmt.Errorf("[Service.CreateCompany] %s %s: %w", input.DocumentType, document, apperrors.ErrDuplicateDocument)
	}
	if err != nil {
		return nil, fmt.Errorf("[Service.CreateCompany] companies.Insert: %w", err)
	}
	company.ID = created.ID
	company.Version = created.Version
	company.CreatedAt = created.CreatedAt
	company.UpdatedAt = created.UpdatedAt

	if _, err := s.memberships.LinkAsAdmin(ctx, userID, userID, company.ID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Int64("user_id", userID).
			Int64("company_id", company.ID).
			Msg("company created but admin link failed")
		return company, fmt.Errorf("[Service.CreateCompany] company %d: %w: %w", company.ID, apperrors.ErrOrphanCompany, err)
	}

	if _, err := s.selectCompany(ctx, userID, company.ID, modeCreated); err != nil {
		return company, fmt.Errorf("[Service.CreateCompany] %w", err)
	}
	return company, nil
}

// RenameCompany renames the selected company if it is still at expectedVersion.
// Only an admin of the company may rename it.
func (s *Service) RenameCompany(ctx context.Context, expectedVersion int64, name string) (rowversion.Stamp, error) {
	sel, err := s.requireAdmin(ctx)
	if err != nil {
		return rowversion.Stamp{}, fmt.Errorf("[Service.RenameCompany] %w", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return rowversion.Stamp{}, fmt.Errorf("[Service.RenameCompany] name is required: %w", apperrors.ErrInvalidArgument)
	}
	stamp, err := s.companies.UpdateBasics(ctx, sel.CompanyID, expectedVersion, name)
	if err != nil {
		observeConflict(err)
		return rowversion.Stamp{}, fmt.Errorf("[Service.RenameCompany] company %d: %w", sel.CompanyID, err)
	}

	store, err := sessions.TenantFrom(ctx)
	if err != nil {
		return rowversion.Stamp{}, fmt.Errorf("[Service.RenameCompany] %w", err)
	}
	if err := store.Select(sel.CompanyID, name, sel.Admin, sel.SelectedAt); err != nil {
		return rowversion.Stamp{}, fmt.Errorf("[Service.RenameCompany] %w", err)
	}
	return stamp, nil
}

// DeleteCompany soft-deletes the selected company and clears the selection.
// Memberships are kept so RestoreCompany can bring everything back.
func (s *Service) DeleteCompany(ctx context.Context, expectedVersion int64) (rowversion.Stamp, error) {
	sel, err := s.requireAdmin(ctx)
	if err != nil {
		return rowversion.Stamp{}, fmt.Errorf("[Service.DeleteCompany] %w", err)
	}
	stamp, err := s.companies.SoftDelete(ctx, sel.CompanyID, expectedVersion)
	if err != nil {
		observeConflict(err)
		return rowversion.Stamp{}, fmt.Errorf("[Service.DeleteCompany] company %d: %w", sel.CompanyID, err)
	}
	if err := s.ClearSelection(ctx); err != nil {
		return rowversion.Stamp{}, fmt.Errorf("[Service.DeleteCompany] %w", err)
	}
	zerolog.Ctx(ctx).Info().Int64("company_id", sel.CompanyID).Msg("company deleted")
	return stamp, nil
}

// RestoreCompany revives a deleted company. The caller must be logged in and
// still hold an admin membership in it.
func (s *Service) RestoreCompany(ctx context.Context, companyID, expectedVersion int64) (rowversion.Stamp, error) {
	userID, err := s.requireUserID(ctx)
	if err != nil {
		return rowversion.Stamp{}, fmt.Errorf("[Service.RestoreCompany] %w", err)
	}
	admin, err := s.memberships.IsAdmin(ctx, userID, companyID)
	if err != nil {
		return rowversion.Stamp{}, fmt.Errorf("[Service.RestoreCompany] %w", err)
	}
	if !admin {
		return rowversion.Stamp{}, fmt.Errorf("[Service.RestoreCompany] company %d: %w", companyID, apperrors.ErrForbidden)
	}
	stamp, err := s.companies.Restore(ctx, companyID, expectedVersion)
	if err != nil {
		observeConflict(err)
		return rowversion.Stamp{}, fmt.Errorf("[Service.RestoreCompany] company %d: %w", companyID, err)
	}
	zerolog.Ctx(ctx).Info().Int64("company_id", companyID).Msg("company restored")
	return stamp, nil
}

// requireAdmin returns the selection if the logged-in user currently administers it.
// The admin flag is re-read from the membership rather than trusted from the session.
func (s *Service) requireAdmin(ctx context.Context) (sessions.TenantSelection, error) {
	userID, err := s.requireUserID(ctx)
	if err != nil {
		return sessions.TenantSelection{}, err
	}
	sel, err := s.ActiveSelection(ctx)
	if err != nil {
		return sessions.TenantSelection{}, err
	}
	admin, err := s.memberships.IsAdmin(ctx, userID, sel.CompanyID)
	if err != nil {
		return sessions.TenantSelection{}, err
	}
	if !admin {
		return sessions.TenantSelection{}, fmt.Errorf("company %d: %w", sel.CompanyID, apperrors.ErrForbidden)
	}
	return sel, nil
}

func (s *Service) requireUserID(ctx context.Context) (int64, error) {
	identity, err := sessions.IdentityFrom(ctx)
	if err != nil {
		return 0, apperrors.ErrUnauthenticated
	}
	return identity.RequireUserID()
}

func observeConflict(err error) {
	if apperrors.Is(err, apperrors.ErrVersionConflict) {
		metrics.ObserveVersionConflict("company")
	}
}
