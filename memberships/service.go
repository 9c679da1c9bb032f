package memberships

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/internal/rowversion"
	"github.com/jrsteele09/go-tenant-server/tenants"
	"github.com/rs/zerolog"
)

// Service manages the many-to-many relation between users and companies.
type Service struct {
	repo      Repo
	companies tenants.Repo
}

func NewService(repo Repo, companies tenants.Repo) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[memberships.NewService] membership repo is required")
	}
	if companies == nil {
		return nil, errors.New("[memberships.NewService] company repo is required")
	}
	return &Service{repo: repo, companies: companies}, nil
}

// LinkAsAdmin makes userID an admin member of companyID and returns the membership id.
func (s *Service) LinkAsAdmin(ctx context.Context, createdBy, userID, companyID int64) (int64, error) {
	return s.link(ctx, createdBy, userID, companyID, true)
}

// LinkMember makes userID a plain member of companyID and returns the membership id.
func (s *Service) LinkMember(ctx context.Context, createdBy, userID, companyID int64) (int64, error) {
	return s.link(ctx, createdBy, userID, companyID, false)
}

// link is idempotent: an active row is returned as is, a deleted row is restored,
// and only a missing pair is inserted.
func (s *Service) link(ctx context.Context, createdBy, userID, companyID int64, admin bool) (int64, error) {
	if createdBy <= 0 || userID <= 0 || companyID <= 0 {
		return 0, fmt.Errorf("[Service.link] ids must be positive: %w", apperrors.ErrInvalidArgument)
	}

	existing, err := s.repo.Get(ctx, userID, companyID)
	switch {
	case err == nil && existing.Active():
		return existing.ID, nil
	case err == nil:
		return s.restore(ctx, existing, admin)
	case !apperrors.Is(err, apperrors.ErrNotFound):
		return 0, fmt.Errorf("[Service.link] repo.Get: %w", err)
	}

	created, err := s.repo.Insert(ctx, &Membership{
		UserID:    userID,
		CompanyID: companyID,
		CreatedBy: createdBy,
		Admin:     admin,
	})
	if err == nil {
		return created.ID, nil
	}
	if !apperrors.Is(err, apperrors.ErrUniqueViolation) {
		return 0, fmt.Errorf("[Service.link] repo.Insert: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Int64("user_id", userID).
		Int64("company_id", companyID).
		Msg("membership created concurrently, re-reading")
	return s.activeID(ctx, userID, companyID)
}

func (s *Service) restore(ctx context.Context, m *Membership, admin bool) (int64, error) {
	_, err := s.repo.Restore(ctx, m.ID, m.Version, admin)
	if err == nil {
		return m.ID, nil
	}
	if apperrors.Is(err, apperrors.ErrVersionConflict) {
		// Another request may have restored it first, which satisfies the intent.
		return s.activeID(ctx, m.UserID, m.CompanyID)
	}
	return 0, fmt.Errorf("[Service.restore] repo.Restore: %w", err)
}

func (s *Service) activeID(ctx context.Context, userID, companyID int64) (int64, error) {
	m, err := s.repo.Get(ctx, userID, companyID)
	if err != nil {
		return 0, fmt.Errorf("[Service.activeID] repo.Get: %w", err)
	}
	if !m.Active() {
		return 0, fmt.Errorf("[Service.activeID] membership %d changed concurrently: %w", m.ID, apperrors.ErrVersionConflict)
	}
	return m.ID, nil
}

// Unlink soft-deletes the active membership, reporting whether one existed.
func (s *Service) Unlink(ctx context.Context, userID, companyID int64) (bool, error) {
	affected, err := s.repo.SoftDelete(ctx, userID, companyID)
	if err != nil {
		return false, fmt.Errorf("[Service.Unlink] repo.SoftDelete: %w", err)
	}
	return affected, nil
}

// Restore revives a previously unlinked membership with its old admin flag.
func (s *Service) Restore(ctx context.Context, userID, companyID int64) (int64, error) {
	m, err := s.repo.Get(ctx, userID, companyID)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return 0, fmt.Errorf("[Service.Restore] %w", apperrors.ErrNotAMember)
	}
	if err != nil {
		return 0, fmt.Errorf("[Service.Restore] repo.Get: %w", err)
	}
	if m.Active() {
		return m.ID, nil
	}
	return s.restore(ctx, m, m.Admin)
}

// Active returns the user's live membership in the company, or errors.ErrNotAMember.
func (s *Service) Active(ctx context.Context, userID, companyID int64) (*Membership, error) {
	m, err := s.repo.Get(ctx, userID, companyID)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrNotAMember
	}
	if err != nil {
		return nil, fmt.Errorf("[Service.Active] repo.Get: %w", err)
	}
	if !m.Active() {
		return nil, apperrors.ErrNotAMember
	}
	return m, nil
}

func (s *Service) IsAdmin(ctx context.Context, userID, companyID int64) (bool, error) {
	m, err := s.Active(ctx, userID, companyID)
	if apperrors.Is(err, apperrors.ErrNotAMember) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.Admin, nil
}

// SetAdmin toggles the admin flag on the user's active membership.
func (s *Service) SetAdmin(ctx context.Context, userID, companyID int64, admin bool) (rowversion.Stamp, error) {
	m, err := s.Active(ctx, userID, companyID)
	if err != nil {
		return rowversion.Stamp{}, err
	}
	if m.Admin == admin {
		return rowversion.Stamp{Version: m.Version, UpdatedAt: m.UpdatedAt}, nil
	}
	stamp, err := s.repo.SetAdmin(ctx, m.ID, m.Version, admin)
	if err != nil {
		return rowversion.Stamp{}, fmt.Errorf("[Service.SetAdmin] repo.SetAdmin: %w", err)
	}
	return stamp, nil
}

// ChoicesFor lists the live companies the user is an active member of, by name.
func (s *Service) ChoicesFor(ctx context.Context, userID int64) ([]Choice, error) {
	links, err := s.repo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("[Service.ChoicesFor] repo.ListActiveByUser: %w", err)
	}
	if len(links) == 0 {
		return []Choice{}, nil
	}

	ids := make([]int64, 0, len(links))
	admin := make(map[int64]bool, len(links))
	for _, l := range links {
		ids = append(ids, l.CompanyID)
		admin[l.CompanyID] = l.Admin
	}
	companies, err := s.companies.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("[Service.ChoicesFor] companies.GetMany: %w", err)
	}

	choices := make([]Choice, 0, len(companies))
	for _, c := range companies {
		if c.Deleted() {
			continue
		}
		choices = append(choices, Choice{CompanyID: c.ID, CompanyName: c.Name, Admin: admin[c.ID]})
	}
	sort.Slice(choices, func(i, j int) bool {
		a, b := strings.ToLower(choices[i].CompanyName), strings.ToLower(choices[j].CompanyName)
		if a != b {
			return a < b
		}
		return choices[i].CompanyID < choices[j].CompanyID
	})
	return choices, nil
}

// Members lists the active memberships of a company.
func (s *Service) Members(ctx context.Context, companyID int64) ([]*Membership, error) {
	members, err := s.repo.ListActiveByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("[Service.Members] repo.ListActiveByCompany: %w", err)
	}
	return members, nil
}
