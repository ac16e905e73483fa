// Package config handles the client's on-disk configuration: daemon
// endpoint, registry credentials, and secret sources. It follows the
// same two-tier AppConfig/UserConfig split the teacher repo uses for its
// GUI theming config, here repurposed for build-session settings.
package config

import (
	"os"
	"path/filepath"

	"github.com/OpenPeeDeeP/xdg"
)

// AppConfig holds process-lifetime settings: build metadata plus the
// resolved UserConfig. Mirrors the teacher's config.AppConfig fields
// used by pkg/log.NewLogger (Debug, Version, Commit, BuildDate).
type AppConfig struct {
	Debug       bool
	Version     string
	Commit      string
	BuildDate   string
	Name        string
	BuildSource string
	UserConfig  *UserConfig
	ConfigDir   string
}

// NewAppConfig loads (or creates) the on-disk config file under the XDG
// config directory and merges it onto the built-in defaults.
func NewAppConfig(name, version, commit, date, buildSource string, debuggingFlag bool) (*AppConfig, error) {
	configDir, err := findOrCreateConfigDir(name)
	if err != nil {
		return nil, err
	}

	userConfig, err := loadUserConfigWithDefaults(configDir)
	if err != nil {
		return nil, err
	}

	return &AppConfig{
		Name:        name,
		Version:     version,
		Commit:      commit,
		BuildDate:   date,
		Debug:       debuggingFlag || os.Getenv("DEBUG") == "TRUE",
		BuildSource: buildSource,
		UserConfig:  userConfig,
		ConfigDir:   configDir,
	}, nil
}

func configDir(projectName string) string {
	if envConfigDir := os.Getenv("CONFIG_DIR"); envConfigDir != "" {
		return envConfigDir
	}
	return xdg.New("", projectName).ConfigHome()
}

func findOrCreateConfigDir(projectName string) (string, error) {
	folder := configDir(projectName)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", err
	}
	return folder, nil
}

// ConfigFilename returns the filename of the current config file.
func (c *AppConfig) ConfigFilename() string {
	return filepath.Join(c.ConfigDir, "config.yml")
}
