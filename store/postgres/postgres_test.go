package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-tenant-server/clients"
	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/internal/rowversion"
	"github.com/jrsteele09/go-tenant-server/internal/utils"
	"github.com/jrsteele09/go-tenant-server/memberships"
	"github.com/jrsteele09/go-tenant-server/store/postgres"
	"github.com/jrsteele09/go-tenant-server/tenants"
	"github.com/jrsteele09/go-tenant-server/users"
	"github.com/stretchr/testify/require"
)

// setupPool connects to TEST_DATABASE_URL and migrates it, or skips the test.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = postgres.Migrate(ctx, pool)
	require.NoError(t, err)
	applied, err := postgres.Migrate(ctx, pool)
	require.NoError(t, err)
	require.Zero(t, applied)
	return pool
}

func unique(prefix string) string {
	return prefix + uuid.New().String()[:8]
}

func createUser(t *testing.T, repo *postgres.UserRepo) *users.User {
	t.Helper()
	user := &users.User{
		Email:           unique("user-") + "@example.com",
		Name:            "Test",
		ProvisionalHash: utils.Ptr("$2a$10$provisional"),
	}
	created, err := repo.Insert(context.Background(), user)
	require.NoError(t, err)
	user.ID, user.Version = created.ID, created.Version
	return user
}

func createCompany(t *testing.T, repo *postgres.TenantRepo) int64 {
	t.Helper()
	created, err := repo.Insert(context.Background(), &tenants.Company{
		Name:         unique("Company "),
		DocumentType: tenants.DocumentVAT,
		Document:     unique("DOC"),
	})
	require.NoError(t, err)
	return created.ID
}

// TestUserRepo tests insert, lookup and credential conditional writes
func TestUserRepo(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	repo := postgres.NewUserRepo(pool)

	user := createUser(t, repo)
	require.Equal(t, rowversion.Initial, user.Version)

	_, err := repo.Insert(ctx, &users.User{Email: user.Email, Name: "Dup", ProvisionalHash: utils.Ptr("x")})
	require.ErrorIs(t, err, apperrors.ErrUniqueViolation)

	got, err := repo.GetByEmail(ctx, user.Email)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	_, err = repo.GetByEmail(ctx, "missing-"+user.Email)
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)

	stamp, err := repo.UpdateCredentials(ctx, user.ID, user.Version, users.Credentials{PasswordHash: got.ProvisionalHash})
	require.NoError(t, err)
	require.Equal(t, user.Version+1, stamp.Version)

	_, err = repo.UpdateCredentials(ctx, user.ID, user.Version, users.Credentials{PasswordHash: got.ProvisionalHash})
	require.ErrorIs(t, err, apperrors.ErrVersionConflict)

	_, err = repo.UpdateCredentials(ctx, user.ID, stamp.Version, users.Credentials{})
	require.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

// TestMembershipRepo_UniqueViolationHealsInService tests the race path against the real constraint
func TestMembershipRepo_UniqueViolationHealsInService(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	userRepo := postgres.NewUserRepo(pool)
	tenantRepo := postgres.NewTenantRepo(pool)
	repo := postgres.NewMembershipRepo(pool)

	user := createUser(t, userRepo)
	companyID := createCompany(t, tenantRepo)

	_, err := repo.Insert(ctx, &memberships.Membership{UserID: user.ID, CompanyID: companyID, CreatedBy: user.ID})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, &memberships.Membership{UserID: user.ID, CompanyID: companyID, CreatedBy: user.ID})
	require.ErrorIs(t, err, apperrors.ErrUniqueViolation)

	service, err := memberships.NewService(repo, tenantRepo)
	require.NoError(t, err)
	first, err := service.LinkAsAdmin(ctx, user.ID, user.ID, companyID)
	require.NoError(t, err)

	removed, err := service.Unlink(ctx, user.ID, companyID)
	require.NoError(t, err)
	require.True(t, removed)
	restored, err := service.LinkAsAdmin(ctx, user.ID, user.ID, companyID)
	require.NoError(t, err)
	require.Equal(t, first, restored)

	choices, err := service.ChoicesFor(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, choices, 1)
}

// TestClientRepo tests tenant scoping and version checks in SQL
func TestClientRepo(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	tenantRepo := postgres.NewTenantRepo(pool)
	repo := postgres.NewClientRepo(pool)

	mine := createCompany(t, tenantRepo)
	other := createCompany(t, tenantRepo)

	created, err := repo.Insert(ctx, &clients.Client{CompanyID: mine, Name: "Rex"})
	require.NoError(t, err)

	_, err = repo.Get(ctx, other, created.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = repo.UpdateBasics(ctx, other, created.ID, created.Version, clients.Basics{Name: "Stolen"})
	require.ErrorIs(t, err, apperrors.ErrVersionConflict)

	stamp, err := repo.UpdateBasics(ctx, mine, created.ID, created.Version, clients.Basics{Name: "Rex II"})
	require.NoError(t, err)
	require.Equal(t, created.Version+1, stamp.Version)
	_, err = repo.UpdateBasics(ctx, mine, created.ID, created.Version, clients.Basics{Name: "Lost"})
	require.ErrorIs(t, err, apperrors.ErrVersionConflict)

	_, err = repo.SoftDelete(ctx, mine, created.ID, stamp.Version)
	require.NoError(t, err)
	list, err := repo.List(ctx, mine, 0, 10)
	require.NoError(t, err)
	require.Empty(t, list)
}
