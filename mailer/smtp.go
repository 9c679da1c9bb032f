package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/go-mail/mail"
	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/rs/zerolog"
)

var _ Mailer = (*SMTPMailer)(nil)

// Sender is the part of mail.Dialer the SMTPMailer uses.
type Sender interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Account  string
	Password string
	From     string
	AppName  string
	SSL      bool
}

type SMTPMailer struct {
	from    string
	appName string
	sender  Sender
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("[NewSMTPMailer] smtp host is required")
	}
	if cfg.From == "" {
		cfg.From = cfg.Account
	}
	if cfg.From == "" {
		return nil, errors.New("[NewSMTPMailer] from address is required")
	}

	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Account, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	d.SSL = cfg.SSL
	return NewSMTPMailerWithSender(cfg, d), nil
}

// NewSMTPMailerWithSender builds a mailer around an existing sender.
func NewSMTPMailerWithSender(cfg SMTPConfig, sender Sender) *SMTPMailer {
	appName := cfg.AppName
	if appName == "" {
		appName = "Tenant Server"
	}
	from := cfg.From
	if from == "" {
		from = cfg.Account
	}
	return &SMTPMailer{from: from, appName: appName, sender: sender}
}

func (m *SMTPMailer) Send(ctx context.Context, toEmail, provisionalSecret string, reason Reason) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, body := message(m.appName, provisionalSecret, reason)
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", toEmail)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.sender.DialAndSend(msg); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("to", toEmail).
			Str("reason", string(reason)).
			Msg("smtp send failed")
		return fmt.Errorf("[SMTPMailer.Send] %w: %w", apperrors.ErrMailDelivery, err)
	}
	zerolog.Ctx(ctx).Info().Str("to", toEmail).Str("reason", string(reason)).Msg("email sent")
	return nil
}
