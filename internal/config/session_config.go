package config

import "time"

type SessionConfig interface {
	GetSessionCookieName() string
	GetSessionTTL() time.Duration
	GetSecureCookies() bool
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetSessionCookieName() string {
	return GetEnv("SESSION_COOKIE_NAME", "tenant_session")
}

func (Session) GetSessionTTL() time.Duration {
	return GetEnvDuration("SESSION_TTL", 30*time.Minute)
}

// GetSecureCookies defaults to true outside DEV.
func (Session) GetSecureCookies() bool {
	return GetEnvBool("SESSION_SECURE_COOKIE", EnvVars{}.GetEnv() != "DEV")
}
