package main

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-tenant-server/internal/config"
	"github.com/jrsteele09/go-tenant-server/mailer"
	"github.com/stretchr/testify/require"
)

// TestBuildServices_InMemory tests wiring with no external backends configured
func TestBuildServices_InMemory(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("SESSION_SIGNING_KEY", "")
	c := config.New()

	b, err := openBackends(context.Background(), c, false)
	require.NoError(t, err)
	defer b.close()
	require.NoError(t, b.ready(context.Background()))

	services, err := buildServices(c, b)
	require.NoError(t, err)
	require.NotNil(t, services.Credentials)
	require.NotNil(t, services.Cookies)
	require.IsType(t, mailer.LogMailer{}, newMailer(c))
}

// TestSigningKey tests that a configured key wins and short keys are rejected
func TestSigningKey(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("SESSION_SIGNING_KEY", "too-short")
	c := config.New()
	key, err := signingKey(c)
	require.NoError(t, err)
	require.Equal(t, []byte("too-short"), key)

	b, err := openBackends(context.Background(), c, false)
	require.NoError(t, err)
	defer b.close()
	_, err = buildServices(c, b)
	require.Error(t, err)
}

// TestMigrate_RequiresDatabase tests the migrate command without DATABASE_URL
func TestMigrate_RequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	err := run(context.Background(), []string{"migrate", "--env-file", t.TempDir() + "/none.env"})
	require.ErrorContains(t, err, "DATABASE_URL is required")
}
