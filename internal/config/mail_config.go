package config

type MailConfig interface {
	GetSmtpHost() string
	GetSmtpPort() int
	GetSmtpAccount() string
	GetSmtpPassword() string
	GetSmtpFrom() string
	GetMailRetryAttempts() int
}

type Mail struct{}

var _ MailConfig = Mail{}

// GetSmtpHost is empty by default, which selects the logging mailer.
func (Mail) GetSmtpHost() string {
	return GetEnv("SMTP_HOST", "")
}

func (Mail) GetSmtpPort() int {
	return GetEnvInt("SMTP_PORT", 587)
}

func (Mail) GetSmtpAccount() string {
	return GetEnv("SMTP_ACCOUNT", "")
}

func (Mail) GetSmtpPassword() string {
	return GetEnv("SMTP_PASSWORD", "")
}

func (Mail) GetSmtpFrom() string {
	return GetEnv("SMTP_FROM", "")
}

func (Mail) GetMailRetryAttempts() int {
	return GetEnvInt("MAIL_RETRY_ATTEMPTS", 3)
}
