// Package auth owns the password lifecycle: signup with a provisional secret,
// promotion on first use, forgot-password re-issue and password changes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/internal/metrics"
	"github.com/jrsteele09/go-tenant-server/internal/utils"
	"github.com/jrsteele09/go-tenant-server/mailer"
	"github.com/jrsteele09/go-tenant-server/sessions"
	"github.com/jrsteele09/go-tenant-server/users"
	"github.com/rs/zerolog"
)

// unknownEmailSecret is hashed for unregistered emails to match the cost of a real reset.
const unknownEmailSecret = "unregistered-email"

// Outcome is the result of LoginOrConfirm.
type Outcome string

const (
	OutcomeInvalid   Outcome = "invalid"
	OutcomeConfirmed Outcome = "confirmed" // provisional secret promoted to the official password
	OutcomeLoggedIn  Outcome = "logged_in"
)

// CredentialService runs the password lifecycle for users.
type CredentialService struct {
	users     users.Repo
	mailer    mailer.Mailer
	nowTime   func() time.Time
	newSecret func() (string, error)
}

// CredentialServiceOption defines a function type to modify the CredentialService instance.
type CredentialServiceOption func(*CredentialService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CredentialServiceOption {
	return func(cs *CredentialService) {
		cs.nowTime = nowFunc
	}
}

// WithSecretGenerator replaces the provisional secret source (primarily for testing)
func WithSecretGenerator(gen func() (string, error)) CredentialServiceOption {
	return func(cs *CredentialService) {
		cs.newSecret = gen
	}
}

// WithSecretLength sets the length of generated provisional secrets.
func WithSecretLength(length int) CredentialServiceOption {
	return func(cs *CredentialService) {
		cs.newSecret = func() (string, error) {
			return users.GenerateProvisionalSecret(length)
		}
	}
}

func NewCredentialService(userRepo users.Repo, m mailer.Mailer, options ...CredentialServiceOption) (*CredentialService, error) {
	if userRepo == nil {
		return nil, errors.New("[NewCredentialService] user repo is required")
	}
	if m == nil {
		return nil, errors.New("[NewCredentialService] mailer is required")
	}
	cs := &CredentialService{
		users:   userRepo,
		mailer:  m,
		nowTime: time.Now,
		newSecret: func() (string, error) {
			return users.GenerateProvisionalSecret(users.DefaultProvisionalLength)
		},
	}
	for _, opt := range options {
		opt(cs)
	}
	return cs, nil
}

// Signup registers an unconfirmed user and mails them a provisional secret.
// If the mail cannot be delivered the user still exists and the returned error
// wraps errors.ErrMailDelivery; ForgotPassword re-issues a secret.
func (cs *CredentialService) Signup(ctx context.Context, name, email string) (*users.User, error) {
	email = users.NormaliseEmail(email)
	name = strings.TrimSpace(name)
	if name == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("[CredentialService.Signup] name and a valid email are required: %w", apperrors.ErrInvalidArgument)
	}

	_, err := cs.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("[CredentialService.Signup] %w", apperrors.ErrDuplicateEmail)
	case !apperrors.Is(err, apperrors.ErrUserNotFound):
		return nil, fmt.Errorf("[CredentialService.Signup] users.GetByEmail: %w", err)
	}

	secret, hash, err := cs.provisional()
	if err != nil {
		return nil, fmt.Errorf("[CredentialService.Signup] %w", err)
	}
	user := &users.User{
		Email:           email,
		Name:            name,
		ProvisionalHash: utils.Ptr(hash),
	}
	created, err := cs.users.Insert(ctx, user)
	if apperrors.Is(err, apperrors.ErrUniqueViolation) {
		return nil, fmt.Errorf("[CredentialService.Signup] %w", apperrors.ErrDuplicateEmail)
	}
	if err != nil {
		return nil, fmt.Errorf("[CredentialService.Signup] users.Insert: %w", err)
	}
	user.ID = created.ID
	user.Version = created.Version
	user.CreatedAt = created.CreatedAt
	user.UpdatedAt = created.UpdatedAt

	metrics.IncSignup()
	zerolog.Ctx(ctx).Info().Int64("user_id", user.ID).Msg("user signed up")

	if err := cs.send(ctx, email, secret, mailer.ReasonSignup); err != nil {
		return user, fmt.Errorf("[CredentialService.Signup] %w", err)
	}
	return user, nil
}

// LoginOrConfirm checks plaintext against the provisional hash first, promoting
// it to the official password on a match, and only then against the official
// hash. Either success logs the user into the session carried by ctx.
func (cs *CredentialService) LoginOrConfirm(ctx context.Context, email, plaintext string) (Outcome, error) {
	identity, err := sessions.IdentityFrom(ctx)
	if err != nil {
		return OutcomeInvalid, fmt.Errorf("[CredentialService.LoginOrConfirm] %w", err)
	}

	outcome, user, err := cs.verify(ctx, users.NormaliseEmail(email), plaintext)
	metrics.ObserveLogin(string(outcome))
	if err != nil {
		return outcome, err
	}

	if err := identity.OnLogin(user.ID, user.Email); err != nil {
		return OutcomeInvalid, fmt.Errorf("[CredentialService.LoginOrConfirm] %w", err)
	}
	zerolog.Ctx(ctx).Info().Int64("user_id", user.ID).Str("outcome", string(outcome)).Msg("login")
	return outcome, nil
}

func (cs *CredentialService) verify(ctx context.Context, email, plaintext string) (Outcome, *users.User, error) {
	user, err := cs.users.GetByEmail(ctx, email)
	if apperrors.Is(err, apperrors.ErrUserNotFound) {
		return OutcomeInvalid, nil, fmt.Errorf("[CredentialService.LoginOrConfirm] %w", apperrors.ErrInvalidCredentials)
	}
	if err != nil {
		return OutcomeInvalid, nil, fmt.Errorf("[CredentialService.LoginOrConfirm] users.GetByEmail: %w", err)
	}

	if user.HasProvisional() && users.CheckPasswordHash(plaintext, user.ProvisionalHash) {
		confirmedAt := user.EmailConfirmedAt
		if confirmedAt == nil {
			confirmedAt = utils.Ptr(cs.nowTime())
		}
		stamp, err := cs.users.UpdateCredentials(ctx, user.ID, user.Version, users.Credentials{
			PasswordHash:     user.ProvisionalHash,
			ProvisionalHash:  nil,
			EmailConfirmedAt: confirmedAt,
		})
		if err != nil {
			cs.observeConflict(err)
			return OutcomeInvalid, nil, fmt.Errorf("[CredentialService.LoginOrConfirm] promote user %d: %w", user.ID, err)
		}
		user.Version = stamp.Version
		return OutcomeConfirmed, user, nil
	}

	if user.HasOfficial() && users.CheckPasswordHash(plaintext, user.PasswordHash) {
		return OutcomeLoggedIn, user, nil
	}
	return OutcomeInvalid, nil, fmt.Errorf("[CredentialService.LoginOrConfirm] %w", apperrors.ErrInvalidCredentials)
}

// ForgotPassword issues a new provisional secret alongside the current
// password. Unknown emails succeed silently after hashing a throwaway secret,
// and a failed delivery is logged, not returned: the result never reveals
// whether the email is registered.
func (cs *CredentialService) ForgotPassword(ctx context.Context, email string) error {
	email = users.NormaliseEmail(email)
	user, err := cs.users.GetByEmail(ctx, email)
	if apperrors.Is(err, apperrors.ErrUserNotFound) {
		_, _ = users.HashPassword(unknownEmailSecret)
		zerolog.Ctx(ctx).Debug().Msg("forgot password for unknown email ignored")
		return nil
	}
	if err != nil {
		return fmt.Errorf("[CredentialService.ForgotPassword] users.GetByEmail: %w", err)
	}

	secret, hash, err := cs.provisional()
	if err != nil {
		return fmt.Errorf("[CredentialService.ForgotPassword] %w", err)
	}
	if _, err := cs.users.UpdateCredentials(ctx, user.ID, user.Version, users.Credentials{
		PasswordHash:     user.PasswordHash,
		ProvisionalHash:  utils.Ptr(hash),
		EmailConfirmedAt: user.EmailConfirmedAt,
	}); err != nil {
		cs.observeConflict(err)
		return fmt.Errorf("[CredentialService.ForgotPassword] user %d: %w", user.ID, err)
	}

	metrics.IncPasswordReset()
	if err := cs.send(ctx, user.Email, secret, mailer.ReasonForgot); err != nil {
		zerolog.Ctx(ctx).Warn().Int64("user_id", user.ID).Msg("reset secret stored but not delivered")
	}
	return nil
}

// SetPasswordAfterConfirm replaces the official password and drops any
// outstanding provisional secret.
func (cs *CredentialService) SetPasswordAfterConfirm(ctx context.Context, email, newPlaintext string) error {
	if err := cs.StrongPasswordCheck(newPlaintext); err != nil {
		return fmt.Errorf("[CredentialService.SetPasswordAfterConfirm] %w", err)
	}

	user, err := cs.users.GetByEmail(ctx, users.NormaliseEmail(email))
	if err != nil {
		return fmt.Errorf("[CredentialService.SetPasswordAfterConfirm] users.GetByEmail: %w", err)
	}
	hash, err := users.HashPassword(newPlaintext)
	if err != nil {
		return fmt.Errorf("[CredentialService.SetPasswordAfterConfirm] %w", err)
	}
	if _, err := cs.users.UpdateCredentials(ctx, user.ID, user.Version, users.Credentials{
		PasswordHash:     utils.Ptr(hash),
		ProvisionalHash:  nil,
		EmailConfirmedAt: utils.Ptr(cs.nowTime()),
	}); err != nil {
		cs.observeConflict(err)
		return fmt.Errorf("[CredentialService.SetPasswordAfterConfirm] user %d: %w", user.ID, err)
	}
	zerolog.Ctx(ctx).Info().Int64("user_id", user.ID).Msg("password changed")
	return nil
}

// StrongPasswordCheck returns an error wrapping errors.ErrWeakPassword that
// names every rule the password breaks.
func (cs *CredentialService) StrongPasswordCheck(plaintext string) error {
	return users.ValidatePasswordStrength(plaintext)
}

func (cs *CredentialService) provisional() (secret, hash string, err error) {
	secret, err = cs.newSecret()
	if err != nil {
		return "", "", fmt.Errorf("generate provisional secret: %w", err)
	}
	hash, err = users.HashPassword(secret)
	if err != nil {
		return "", "", err
	}
	return secret, hash, nil
}

func (cs *CredentialService) send(ctx context.Context, email, secret string, reason mailer.Reason) error {
	if err := cs.mailer.Send(ctx, email, secret, reason); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("reason", string(reason)).Msg("provisional secret not delivered")
		if apperrors.Is(err, apperrors.ErrMailDelivery) {
			return err
		}
		return fmt.Errorf("%w: %w", apperrors.ErrMailDelivery, err)
	}
	return nil
}

func (cs *CredentialService) observeConflict(err error) {
	if apperrors.Is(err, apperrors.ErrVersionConflict) {
		metrics.ObserveVersionConflict("user")
	}
}
