package config

import (
	"os"

	yaml "github.com/jesseduffield/yaml"
)

// RegistryConfig is one entry of the credential table C6 answers probes
// from. HostPattern is matched per pkg/session/auth's exact/substring/
// docker-alias rule.
type RegistryConfig struct {
	HostPattern string `yaml:"host,omitempty"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
}

// SecretConfig names one build-time secret the secrets handler (C7) can
// serve: either an inline value or a path read at session start.
type SecretConfig struct {
	ID       string `yaml:"id,omitempty"`
	FilePath string `yaml:"file,omitempty"`
	Value    string `yaml:"value,omitempty"`
}

// DaemonConfig names the build daemon endpoint, mirroring --addr.
type DaemonConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty"`
}

// BuildConfig holds defaults applied to every build unless overridden on
// the command line.
type BuildConfig struct {
	NoCache          bool     `yaml:"noCache,omitempty"`
	ImageResolveMode string   `yaml:"imageResolveMode,omitempty"`
	Platform         string   `yaml:"platform,omitempty"`
	Ignore           []string `yaml:"ignore,omitempty"`
}

// UserConfig holds all of the user-configurable options.
type UserConfig struct {
	Daemon     DaemonConfig     `yaml:"daemon,omitempty"`
	Registries []RegistryConfig `yaml:"registries,omitempty"`
	Secrets    []SecretConfig   `yaml:"secrets,omitempty"`
	Build      BuildConfig      `yaml:"build,omitempty"`
}

// GetDefaultConfig returns the zero-value UserConfig enriched with the
// handful of settings that aren't sensibly empty.
func GetDefaultConfig() UserConfig {
	return UserConfig{
		Daemon: DaemonConfig{
			Addr: "unix:///run/buildkit/buildkitd.sock",
		},
		Build: BuildConfig{
			ImageResolveMode: "default",
		},
	}
}

func loadUserConfigWithDefaults(configDir string) (*UserConfig, error) {
	base := GetDefaultConfig()
	return loadUserConfig(configDir, &base)
}

// loadUserConfig reads configDir/config.yml (creating an empty one if
// absent) and unmarshals it onto base, so that fields the file sets
// override the defaults and fields it omits keep them — the same
// direct-unmarshal-onto-defaults approach as the teacher's
// loadUserConfig.
func loadUserConfig(configDir string, base *UserConfig) (*UserConfig, error) {
	fileName := configDir + "/config.yml"

	if _, err := os.Stat(fileName); err != nil {
		if os.IsNotExist(err) {
			file, createErr := os.Create(fileName)
			if createErr != nil {
				return nil, createErr
			}
			file.Close()
		} else {
			return nil, err
		}
	}

	content, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(content, base); err != nil {
		return nil, err
	}

	return base, nil
}
