package sessions

import (
	"context"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
)

type ctxKey struct{}

// WithSession attaches the request's session handle to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached by WithSession.
func FromContext(ctx context.Context) (*Session, error) {
	if ctx == nil {
		return nil, apperrors.ErrSessionNotFound
	}
	s, ok := ctx.Value(ctxKey{}).(*Session)
	if !ok || s == nil {
		return nil, apperrors.ErrSessionNotFound
	}
	return s, nil
}

func IdentityFrom(ctx context.Context) (*IdentityStore, error) {
	s, err := FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.Identity(), nil
}

func TenantFrom(ctx context.Context) (*TenantStore, error) {
	s, err := FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.Tenant(), nil
}
