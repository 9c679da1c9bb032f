package config

import "github.com/jrsteele09/go-tenant-server/users"

type SecurityConfig interface {
	GetProvisionalSecretLength() int
	GetSessionSigningKey() []byte
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetProvisionalSecretLength() int {
	length := GetEnvInt("PROVISIONAL_SECRET_LENGTH", users.DefaultProvisionalLength)
	if length < users.DefaultProvisionalLength {
		return users.DefaultProvisionalLength
	}
	return length
}

// GetSessionSigningKey returns the HS256 key for session cookies, or nil when
// unset, in which case a random per-process key is used.
func (Security) GetSessionSigningKey() []byte {
	key := GetEnv("SESSION_SIGNING_KEY", "")
	if key == "" {
		return nil
	}
	return []byte(key)
}
