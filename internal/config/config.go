package config

import (
	"fmt"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	OAuthConfig
	APIConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetDataFolder() string
	GetLogLevel() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	OAuth
	API
	Storage
}

// New loads an optional .env file and the YAML overlay named by BYTEFIT_CONFIG
// before returning the environment backed configuration.
func New() (Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	if err := LoadOverlay(GetEnv(configFileVar, defaultConfigFile)); err != nil {
		return nil, fmt.Errorf("[config New] %w", err)
	}
	return mainConfig{}, nil
}
