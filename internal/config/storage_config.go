package config

type StorageConfig interface {
	GetDatabaseURL() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

// Storage selects the backends. An empty DATABASE_URL keeps every repository in
// memory and an empty REDIS_ADDR keeps sessions in process.
type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetDatabaseURL() string {
	return GetEnv("DATABASE_URL", "")
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "")
}

func (Storage) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Storage) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}
