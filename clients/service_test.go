package clients_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jrsteele09/go-tenant-server/clients"
	fakeclientrepo "github.com/jrsteele09/go-tenant-server/clients/fakerepo"
	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/stretchr/testify/require"
)

type scopeKey struct{}

// contextScope reads the active company from the context so each test can act
// as a different tenant without a full session.
type contextScope struct{}

func (contextScope) ActiveCompanyID(ctx context.Context) (int64, error) {
	id, ok := ctx.Value(scopeKey{}).(int64)
	if !ok {
		return 0, apperrors.ErrNoTenantSelected
	}
	return id, nil
}

func asCompany(companyID int64) context.Context {
	return context.WithValue(context.Background(), scopeKey{}, companyID)
}

type testFixture struct {
	repo    *fakeclientrepo.FakeClientRepo
	service *clients.Service
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	repo := fakeclientrepo.NewFakeClientRepo()
	service, err := clients.NewService(repo, contextScope{})
	require.NoError(t, err)
	return &testFixture{repo: repo, service: service}
}

// TestRequiresSelection tests that every operation needs an active company
func TestRequiresSelection(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, clients.Basics{Name: "Rex"})
	require.ErrorIs(t, err, apperrors.ErrNoTenantSelected)
	_, err = f.service.Get(ctx, 1)
	require.ErrorIs(t, err, apperrors.ErrNoTenantSelected)
	_, err = f.service.List(ctx, 0, 10)
	require.ErrorIs(t, err, apperrors.ErrNoTenantSelected)
	_, err = f.service.UpdateBasics(ctx, 1, 1, clients.Basics{Name: "Rex"})
	require.ErrorIs(t, err, apperrors.ErrNoTenantSelected)
	_, err = f.service.Delete(ctx, 1, 1)
	require.ErrorIs(t, err, apperrors.ErrNoTenantSelected)
}

// TestCreateAndGet tests insert results and normalisation
func TestCreateAndGet(t *testing.T) {
	f := setupTestFixture(t)
	ctx := asCompany(10)

	client, err := f.service.Create(ctx, clients.Basics{Name: "  Maria Silva ", Email: " Maria@Ex.com"})
	require.NoError(t, err)
	require.Positive(t, client.ID)
	require.Equal(t, int64(10), client.CompanyID)
	require.Equal(t, int64(1), client.Version)
	require.Equal(t, "Maria Silva", client.Name)
	require.Equal(t, "maria@ex.com", client.Email)
	require.False(t, client.CreatedAt.IsZero())

	got, err := f.service.Get(ctx, client.ID)
	require.NoError(t, err)
	require.Equal(t, client.Basics(), got.Basics())

	_, err = f.service.Create(ctx, clients.Basics{Name: " "})
	require.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	_, err = f.service.Create(ctx, clients.Basics{Name: "X", Email: "nope"})
	require.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

// TestTenantIsolation tests that another company's client is invisible and unwritable
func TestTenantIsolation(t *testing.T) {
	f := setupTestFixture(t)
	mine, err := f.service.Create(asCompany(1), clients.Basics{Name: "Mine"})
	require.NoError(t, err)

	other := asCompany(2)
	_, err = f.service.Get(other, mine.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	list, err := f.service.List(other, 0, 10)
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = f.service.UpdateBasics(other, mine.ID, mine.Version, clients.Basics{Name: "Stolen"})
	require.ErrorIs(t, err, apperrors.ErrVersionConflict)
	_, err = f.service.Delete(other, mine.ID, mine.Version)
	require.ErrorIs(t, err, apperrors.ErrVersionConflict)

	got, err := f.service.Get(asCompany(1), mine.ID)
	require.NoError(t, err)
	require.Equal(t, "Mine", got.Name)
	require.Equal(t, int64(1), got.Version)
}

// TestUpdateBasics tests the version bump and stale-version rejection
func TestUpdateBasics(t *testing.T) {
	f := setupTestFixture(t)
	ctx := asCompany(1)
	client, err := f.service.Create(ctx, clients.Basics{Name: "Before"})
	require.NoError(t, err)

	stamp, err := f.service.UpdateBasics(ctx, client.ID, client.Version, clients.Basics{Name: "After", Phone: "555"})
	require.NoError(t, err)
	require.Equal(t, client.Version+1, stamp.Version)
	require.False(t, stamp.UpdatedAt.Before(client.UpdatedAt))

	_, err = f.service.UpdateBasics(ctx, client.ID, client.Version, clients.Basics{Name: "Lost"})
	require.ErrorIs(t, err, apperrors.ErrVersionConflict)

	got, err := f.service.Get(ctx, client.ID)
	require.NoError(t, err)
	require.Equal(t, "After", got.Name)
	require.Equal(t, stamp.Version, got.Version)
}

// TestUpdateBasics_ConcurrentSameVersion tests that exactly one of two racing writers wins
func TestUpdateBasics_ConcurrentSameVersion(t *testing.T) {
	f := setupTestFixture(t)
	ctx := asCompany(1)
	client, err := f.service.Create(ctx, clients.Basics{Name: "Start"})
	require.NoError(t, err)

	names := []string{"Writer A", "Writer B"}
	errs := make([]error, len(names))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			<-start
			_, errs[i] = f.service.UpdateBasics(ctx, client.ID, client.Version, clients.Basics{Name: name})
		}(i, name)
	}
	close(start)
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperrors.Is(err, apperrors.ErrVersionConflict):
			conflicts++
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, 1, conflicts)

	got, err := f.service.Get(ctx, client.ID)
	require.NoError(t, err)
	require.Equal(t, client.Version+1, got.Version)
}

// TestDelete tests soft deletion and that deleted clients reject further writes
func TestDelete(t *testing.T) {
	f := setupTestFixture(t)
	ctx := asCompany(1)
	client, err := f.service.Create(ctx, clients.Basics{Name: "Gone"})
	require.NoError(t, err)

	stamp, err := f.service.Delete(ctx, client.ID, client.Version)
	require.NoError(t, err)
	require.Equal(t, int64(2), stamp.Version)

	_, err = f.service.Get(ctx, client.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.service.UpdateBasics(ctx, client.ID, stamp.Version, clients.Basics{Name: "Back"})
	require.ErrorIs(t, err, apperrors.ErrVersionConflict)
}

// TestList tests ordering and paging
func TestList(t *testing.T) {
	f := setupTestFixture(t)
	ctx := asCompany(1)
	for _, name := range []string{"charlie", "Alpha", "bravo"} {
		_, err := f.service.Create(ctx, clients.Basics{Name: name})
		require.NoError(t, err)
	}

	list, err := f.service.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, []string{"Alpha", "bravo", "charlie"}, []string{list[0].Name, list[1].Name, list[2].Name})

	page, err := f.service.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "bravo", page[0].Name)

	empty, err := f.service.List(ctx, 5, 10)
	require.NoError(t, err)
	require.Empty(t, empty)
}
