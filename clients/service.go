package clients

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/internal/metrics"
	"github.com/jrsteele09/go-tenant-server/internal/rowversion"
	"github.com/rs/zerolog"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// CompanyScope resolves the company the current session works in.
type CompanyScope interface {
	ActiveCompanyID(ctx context.Context) (int64, error)
}

// Service is the tenant-scoped entry point for client records.
type Service struct {
	repo  Repo
	scope CompanyScope
}

func NewService(repo Repo, scope CompanyScope) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[clients.NewService] client repo is required")
	}
	if scope == nil {
		return nil, errors.New("[clients.NewService] company scope is required")
	}
	return &Service{repo: repo, scope: scope}, nil
}

func (s *Service) Create(ctx context.Context, basics Basics) (*Client, error) {
	companyID, err := s.scope.ActiveCompanyID(ctx)
	if err != nil {
		return nil, fmt.Errorf("[Service.Create] %w", err)
	}
	basics = basics.Normalise()
	if err := basics.Validate(); err != nil {
		return nil, fmt.Errorf("[Service.Create] %w", err)
	}

	client := &Client{CompanyID: companyID}
	client.Apply(basics)
	created, err := s.repo.Insert(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("[Service.Create] repo.Insert: %w", err)
	}
	client.ID = created.ID
	client.Version = created.Version
	client.CreatedAt = created.CreatedAt
	client.UpdatedAt = created.UpdatedAt
	return client, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Client, error) {
	companyID, err := s.scope.ActiveCompanyID(ctx)
	if err != nil {
		return nil, fmt.Errorf("[Service.Get] %w", err)
	}
	client, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("[Service.Get] client %d: %w", id, err)
	}
	return client, nil
}

// List pages through the active company's clients ordered by name.
func (s *Service) List(ctx context.Context, offset, limit int) ([]*Client, error) {
	companyID, err := s.scope.ActiveCompanyID(ctx)
	if err != nil {
		return nil, fmt.Errorf("[Service.List] %w", err)
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	list, err := s.repo.List(ctx, companyID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("[Service.List] repo.List: %w", err)
	}
	return list, nil
}

// UpdateBasics writes basics if the stored client is still at expectedVersion.
// A stale version, another company's client and a deleted client all fail with
// errors.ErrVersionConflict. Conflicts are never retried here.
func (s *Service) UpdateBasics(ctx context.Context, id, expectedVersion int64, basics Basics) (rowversion.Stamp, error) {
	companyID, err := s.scope.ActiveCompanyID(ctx)
	if err != nil {
		return rowversion.Stamp{}, fmt.Errorf("[Service.UpdateBasics] %w", err)
	}
	basics = basics.Normalise()
	if err := basics.Validate(); err != nil {
		return rowversion.Stamp{}, fmt.Errorf("[Service.UpdateBasics] %w", err)
	}
	stamp, err := s.repo.UpdateBasics(ctx, companyID, id, expectedVersion, basics)
	if err != nil {
		s.observe(ctx, err, id, expectedVersion)
		return rowversion.Stamp{}, fmt.Errorf("[Service.UpdateBasics] client %d: %w", id, err)
	}
	return stamp, nil
}

// Delete soft-deletes the client under the same conditions as UpdateBasics.
func (s *Service) Delete(ctx context.Context, id, expectedVersion int64) (rowversion.Stamp, error) {
	companyID, err := s.scope.ActiveCompanyID(ctx)
	if err != nil {
		return rowversion.Stamp{}, fmt.Errorf("[Service.Delete] %w", err)
	}
	stamp, err := s.repo.SoftDelete(ctx, companyID, id, expectedVersion)
	if err != nil {
		s.observe(ctx, err, id, expectedVersion)
		return rowversion.Stamp{}, fmt.Errorf("[Service.Delete] client %d: %w", id, err)
	}
	return stamp, nil
}

func (s *Service) observe(ctx context.Context, err error, id, expectedVersion int64) {
	if !apperrors.Is(err, apperrors.ErrVersionConflict) {
		return
	}
	metrics.ObserveVersionConflict("client")
	zerolog.Ctx(ctx).Debug().
		Int64("client_id", id).
		Int64("expected_version", expectedVersion).
		Msg("client write rejected by version check")
}
