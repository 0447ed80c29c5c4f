package internal

import (
	"os"
	"path/filepath"

	"github.com/safestay/staychat/pkg/config"
)

var version = "dev"

func GetConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".staychat", "config.json")
}

func LoadConfig() (*config.Config, error) {
	return config.LoadConfig(GetConfigPath())
}

func SaveConfig(cfg *config.Config) error {
	return config.SaveConfig(GetConfigPath(), cfg)
}

// GetVersion returns the build version string.
func GetVersion() string {
	return version
}
