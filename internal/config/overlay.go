package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadOverlay reads a flat YAML map of variable names to values, e.g.
//
//	BYTEFIT_CLIENT_ID: oauth2-pkce-client
//	BYTEFIT_API_URL: https://api.bytefit.example/api
//
// Environment variables still take precedence. A missing file is not an error.
func LoadOverlay(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read overlay %s: %w", path, err)
	}

	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse overlay %s: %w", path, err)
	}

	overlayLock.Lock()
	defer overlayLock.Unlock()
	overlay = values
	return nil
}

// ResetOverlay drops any loaded overlay values
func ResetOverlay() {
	overlayLock.Lock()
	defer overlayLock.Unlock()
	overlay = map[string]string{}
}
