package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	appNameVar    = "APP_NAME"
	folderEnvVar  = "FOLDER"
	logLevelVar   = "LOG_LEVEL"
	configFileVar = "BYTEFIT_CONFIG"

	defaultConfigFile = "bytefit.yaml"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "ByteFit")
}

// GetDataFolder is where the durable token store lives when the file backend is used
func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, defaultDataFolder())
}

func (EnvVars) GetLogLevel() string {
	return strings.ToLower(GetEnv(logLevelVar, "info"))
}

func (EnvVars) GetEnv() string {
	return strings.ToUpper(GetEnv("ENV", "DEV"))
}

var (
	overlayLock sync.RWMutex
	overlay     = map[string]string{}
)

// GetEnv resolves a variable from the process environment, then from the YAML
// overlay, then falls back to defaultValue.
func GetEnv(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}

	overlayLock.RLock()
	value, ok := overlay[envVar]
	overlayLock.RUnlock()
	if ok && value != "" {
		return value
	}
	return defaultValue
}

func defaultDataFolder() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(dir, "bytefit")
}
