package config

import "strings"

type StorageBackend string

const (
	StorageFile   StorageBackend = "file"
	StorageRedis  StorageBackend = "redis"
	StorageMemory StorageBackend = "memory"
)

type StorageConfig interface {
	GetStorageBackend() StorageBackend
	GetRedisURL() string
	GetStorageNamespace() string
	GetStorageKey() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetStorageBackend() StorageBackend {
	return StorageBackend(strings.ToLower(GetEnv("BYTEFIT_STORAGE", string(StorageFile))))
}

func (Storage) GetRedisURL() string {
	return GetEnv("BYTEFIT_REDIS_URL", "redis://localhost:6379/0")
}

func (Storage) GetStorageNamespace() string {
	return GetEnv("BYTEFIT_STORAGE_NAMESPACE", "bytefit")
}

// GetStorageKey returns a hex encoded 32 byte key used to seal stored values, or ""
func (Storage) GetStorageKey() string {
	return GetEnv("BYTEFIT_STORAGE_KEY", "")
}
