package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	CorsConfig
	SecurityConfig
	StorageConfig
	MailConfig
	SessionConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Security
	Storage
	Mail
	Session
}

func New() Config {
	return mainConfig{}
}

// Load reads the given .env files (".env" when none are named) into the
// process environment and returns the config. Missing files are ignored and
// variables already set win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return New(), nil
}
