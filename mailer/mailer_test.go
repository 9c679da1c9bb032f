package mailer_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-mail/mail"
	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/mailer"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	messages []*mail.Message
	err      error
}

func (s *fakeSender) DialAndSend(m ...*mail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, m...)
	return nil
}

// TestSMTPMailer tests the message built for each reason
func TestSMTPMailer(t *testing.T) {
	sender := &fakeSender{}
	m := mailer.NewSMTPMailerWithSender(mailer.SMTPConfig{From: "noreply@ex.com", AppName: "Acme"}, sender)

	require.NoError(t, m.Send(context.Background(), "a@ex.com", "Ab3defGh9k", mailer.ReasonSignup))
	require.NoError(t, m.Send(context.Background(), "a@ex.com", "Zz9yxWvu8t", mailer.ReasonForgot))
	require.Len(t, sender.messages, 2)

	first := sender.messages[0]
	require.Equal(t, []string{"noreply@ex.com"}, first.GetHeader("From"))
	require.Equal(t, []string{"a@ex.com"}, first.GetHeader("To"))
	require.Equal(t, []string{"Welcome to Acme"}, first.GetHeader("Subject"))

	var body strings.Builder
	_, err := first.WriteTo(&body)
	require.NoError(t, err)
	require.Contains(t, body.String(), "Ab3defGh9k")

	require.Equal(t, []string{"Acme password reset"}, sender.messages[1].GetHeader("Subject"))
}

// TestSMTPMailer_Failure tests that relay errors are surfaced as delivery failures
func TestSMTPMailer_Failure(t *testing.T) {
	m := mailer.NewSMTPMailerWithSender(mailer.SMTPConfig{From: "noreply@ex.com"}, &fakeSender{err: errors.New("421 busy")})
	err := m.Send(context.Background(), "a@ex.com", "secret", mailer.ReasonOther)
	require.ErrorIs(t, err, apperrors.ErrMailDelivery)
}

func TestNewSMTPMailer_RequiresHost(t *testing.T) {
	_, err := mailer.NewSMTPMailer(mailer.SMTPConfig{From: "noreply@ex.com"})
	require.Error(t, err)
}

func TestLogMailer(t *testing.T) {
	require.NoError(t, mailer.LogMailer{}.Send(context.Background(), "a@ex.com", "secret", mailer.ReasonSignup))
}

type flakyMailer struct {
	failures int
	calls    int
}

func (f *flakyMailer) Send(context.Context, string, string, mailer.Reason) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("temporary failure")
	}
	return nil
}

func fastRetry(attempts int) mailer.RetryConfig {
	return mailer.RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2,
	}
}

// TestWithRetry tests recovery from transient failures and giving up after the last attempt
func TestWithRetry(t *testing.T) {
	t.Run("recovers", func(t *testing.T) {
		flaky := &flakyMailer{failures: 2}
		require.NoError(t, mailer.WithRetry(flaky, fastRetry(3)).Send(context.Background(), "a@ex.com", "s", mailer.ReasonSignup))
		require.Equal(t, 3, flaky.calls)
	})

	t.Run("gives up", func(t *testing.T) {
		flaky := &flakyMailer{failures: 5}
		err := mailer.WithRetry(flaky, fastRetry(3)).Send(context.Background(), "a@ex.com", "s", mailer.ReasonSignup)
		require.ErrorIs(t, err, apperrors.ErrMailDelivery)
		require.Equal(t, 3, flaky.calls)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		flaky := &flakyMailer{failures: 5}
		cfg := fastRetry(3)
		cfg.InitialBackoff = time.Hour
		cfg.MaxBackoff = time.Hour
		err := mailer.WithRetry(flaky, cfg).Send(ctx, "a@ex.com", "s", mailer.ReasonSignup)
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 1, flaky.calls)
	})
}

// TestRecorder tests the in-memory mailer
func TestRecorder(t *testing.T) {
	r := &mailer.Recorder{}
	_, ok := r.Last()
	require.False(t, ok)

	require.NoError(t, r.Send(context.Background(), "a@ex.com", "s1", mailer.ReasonSignup))
	last, ok := r.Last()
	require.True(t, ok)
	require.Equal(t, mailer.Sent{To: "a@ex.com", Secret: "s1", Reason: mailer.ReasonSignup}, last)
	require.Len(t, r.Sent(), 1)
}
