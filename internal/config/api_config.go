package config

import (
	"strings"
	"time"
)

type APIConfig interface {
	GetAPIBaseURL() string
	GetAPITimeout() time.Duration
}

type API struct{}

var _ APIConfig = API{}

func (API) GetAPIBaseURL() string {
	return strings.TrimSuffix(GetEnv("BYTEFIT_API_URL", "http://localhost:8080/api"), "/")
}

func (API) GetAPITimeout() time.Duration {
	d, err := time.ParseDuration(GetEnv("BYTEFIT_API_TIMEOUT", "10s"))
	if err != nil {
		return 10 * time.Second
	}
	return d
}
