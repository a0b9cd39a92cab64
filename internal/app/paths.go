package app

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	appDirName     = "kcal-snap"
	configFileName = "config.yaml"
)

// DefaultConfigPath is where the config file lives when --config is not set.
func DefaultConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, appDirName, configFileName), nil
}
