package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/jrsteele09/go-tenant-server/auth"
	"github.com/jrsteele09/go-tenant-server/clients"
	fakeclientrepo "github.com/jrsteele09/go-tenant-server/clients/fakerepo"
	"github.com/jrsteele09/go-tenant-server/internal/config"
	"github.com/jrsteele09/go-tenant-server/mailer"
	"github.com/jrsteele09/go-tenant-server/memberships"
	fakemembershiprepo "github.com/jrsteele09/go-tenant-server/memberships/repofake"
	"github.com/jrsteele09/go-tenant-server/server"
	"github.com/jrsteele09/go-tenant-server/sessions"
	"github.com/jrsteele09/go-tenant-server/store/postgres"
	"github.com/jrsteele09/go-tenant-server/tenancy"
	"github.com/jrsteele09/go-tenant-server/tenants"
	tenantrepofakes "github.com/jrsteele09/go-tenant-server/tenants/repofakes"
	"github.com/jrsteele09/go-tenant-server/users"
	fakeuserrepo "github.com/jrsteele09/go-tenant-server/users/repofake"
	"github.com/rs/zerolog/log"
)

const sessionCleanupInterval = time.Minute

// backends are the storage implementations picked from configuration.
type backends struct {
	users       users.Repo
	companies   tenants.Repo
	memberships memberships.Repo
	clients     clients.Repo
	sessions    sessions.Repo
	probes      []func(context.Context) error
	closers     []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func (b *backends) ready(ctx context.Context) error {
	for _, probe := range b.probes {
		if err := probe(ctx); err != nil {
			return err
		}
	}
	return nil
}

// openBackends uses Postgres when DATABASE_URL is set and Redis when REDIS_ADDR is
// set, falling back to in-process storage for either.
func openBackends(ctx context.Context, c config.Config, migrate bool) (*backends, error) {
	b := &backends{}

	if url := c.GetDatabaseURL(); url != "" {
		pool, err := postgres.NewPool(ctx, url)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		b.probes = append(b.probes, pool.Ping)
		if migrate {
			applied, err := postgres.Migrate(ctx, pool)
			if err != nil {
				b.close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info().Int("applied", applied).Msg("migrations complete")
		}
		b.users = postgres.NewUserRepo(pool)
		b.companies = postgres.NewTenantRepo(pool)
		b.memberships = postgres.NewMembershipRepo(pool)
		b.clients = postgres.NewClientRepo(pool)
	} else {
		log.Warn().Msg("DATABASE_URL not set, data is kept in memory and lost on restart")
		b.users = fakeuserrepo.NewFakeUserRepo()
		b.companies = tenantrepofakes.NewFakeTenantRepo()
		b.memberships = fakemembershiprepo.NewFakeMembershipRepo()
		b.clients = fakeclientrepo.NewFakeClientRepo()
	}

	if addr := c.GetRedisAddr(); addr != "" {
		client, err := sessions.DialRedis(ctx, addr, c.GetRedisPassword(), c.GetRedisDB())
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.probes = append(b.probes, func(ctx context.Context) error { return client.Ping(ctx).Err() })
		b.sessions = sessions.NewRedisRepo(client, "")
	} else {
		b.sessions = sessions.NewMemoryRepo(sessionCleanupInterval)
	}
	return b, nil
}

func buildServices(c config.Config, b *backends) (server.Services, error) {
	credentials, err := auth.NewCredentialService(b.users, newMailer(c), auth.WithSecretLength(c.GetProvisionalSecretLength()))
	if err != nil {
		return server.Services{}, err
	}
	membershipService, err := memberships.NewService(b.memberships, b.companies)
	if err != nil {
		return server.Services{}, err
	}
	tenancyService, err := tenancy.NewService(membershipService, b.companies)
	if err != nil {
		return server.Services{}, err
	}
	clientService, err := clients.NewService(b.clients, tenancyService)
	if err != nil {
		return server.Services{}, err
	}
	manager, err := sessions.NewManager(b.sessions, c.GetSessionTTL())
	if err != nil {
		return server.Services{}, err
	}
	key, err := signingKey(c)
	if err != nil {
		return server.Services{}, err
	}
	signer, err := sessions.NewCookieSigner(key)
	if err != nil {
		return server.Services{}, err
	}

	return server.Services{
		Credentials: credentials,
		Memberships: membershipService,
		Tenancy:     tenancyService,
		Clients:     clientService,
		Users:       b.users,
		Sessions:    manager,
		Cookies:     signer,
		Ready:       b.ready,
	}, nil
}

// newMailer sends through SMTP when a relay is configured and logs secrets otherwise.
func newMailer(c config.Config) mailer.Mailer {
	host := c.GetSmtpHost()
	if host == "" {
		log.Warn().Msg("SMTP_HOST not set, provisional secrets are logged at debug level")
		return mailer.LogMailer{}
	}
	smtp, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     host,
		Port:     c.GetSmtpPort(),
		Account:  c.GetSmtpAccount(),
		Password: c.GetSmtpPassword(),
		From:     c.GetSmtpFrom(),
		AppName:  c.GetAppName(),
		SSL:      c.GetSmtpPort() == 465,
	})
	if err != nil {
		log.Warn().Err(err).Msg("smtp mailer unavailable, falling back to log mailer")
		return mailer.LogMailer{}
	}
	retry := mailer.DefaultRetryConfig()
	retry.MaxAttempts = c.GetMailRetryAttempts()
	return mailer.WithRetry(smtp, retry)
}

// signingKey returns the configured cookie key, or a random one that invalidates
// every session cookie when the process restarts.
func signingKey(c config.Config) ([]byte, error) {
	if key := c.GetSessionSigningKey(); key != nil {
		return key, nil
	}
	log.Warn().Msg("SESSION_SIGNING_KEY not set, using a random key for this process")
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate session signing key: %w", err)
	}
	return key, nil
}
