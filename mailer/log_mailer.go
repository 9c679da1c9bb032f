package mailer

import (
	"context"

	"github.com/rs/zerolog"
)

var _ Mailer = LogMailer{}

// LogMailer writes the secret to the debug log instead of sending it.
// Only for development, where no SMTP relay is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, toEmail, provisionalSecret string, reason Reason) error {
	zerolog.Ctx(ctx).Debug().
		Str("to", toEmail).
		Str("reason", string(reason)).
		Str("provisional_secret", provisionalSecret).
		Msg("mail not sent, no smtp relay configured")
	return nil
}
