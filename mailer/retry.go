package mailer

import (
	"context"
	"fmt"
	"math"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/rs/zerolog"
)

// RetryConfig holds retry strategy configuration
type RetryConfig struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig returns sensible retry defaults
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    200 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

type retryMailer struct {
	next Mailer
	cfg  RetryConfig
}

// WithRetry retries failed sends with exponential backoff. The last error is
// returned once attempts run out or ctx is done.
func WithRetry(next Mailer, cfg RetryConfig) Mailer {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffMultiplier < 1 {
		cfg.BackoffMultiplier = 1
	}
	return &retryMailer{next: next, cfg: cfg}
}

func (r *retryMailer) Send(ctx context.Context, toEmail, provisionalSecret string, reason Reason) error {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		err := r.next.Send(ctx, toEmail, provisionalSecret, reason)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == r.cfg.MaxAttempts {
			break
		}

		backoff := r.backoff(attempt - 1)
		zerolog.Ctx(ctx).Warn().Err(err).
			Int("attempt", attempt).
			Int("max_attempts", r.cfg.MaxAttempts).
			Dur("backoff", backoff).
			Msg("mail send failed, retrying")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("[retryMailer.Send] %w: %w", apperrors.ErrMailDelivery, ctx.Err())
		case <-timer.C:
		}
	}
	if apperrors.Is(lastErr, apperrors.ErrMailDelivery) {
		return fmt.Errorf("[retryMailer.Send] failed after %d attempts: %w", r.cfg.MaxAttempts, lastErr)
	}
	return fmt.Errorf("[retryMailer.Send] failed after %d attempts: %w: %w", r.cfg.MaxAttempts, apperrors.ErrMailDelivery, lastErr)
}

func (r *retryMailer) backoff(attemptNum int) time.Duration {
	backoff := time.Duration(float64(r.cfg.InitialBackoff) * math.Pow(r.cfg.BackoffMultiplier, float64(attemptNum)))
	if r.cfg.MaxBackoff > 0 && backoff > r.cfg.MaxBackoff {
		backoff = r.cfg.MaxBackoff
	}
	return backoff
}
