package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. APPSHELL_LOG_LEVEL.
const EnvPrefix = "APPSHELL"

// Settings backends.
const (
	BackendTOML   = "toml"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// Config configures the application.
type Config struct {
	// Organization and Application name the settings location.
	Organization string `mapstructure:"organization"`
	Application  string `mapstructure:"application"`

	// Repositories are the manifest files to read at startup.
	Repositories []string `mapstructure:"repositories"`

	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`

	Settings SettingsConfig `mapstructure:"settings"`
	Loader   LoaderConfig   `mapstructure:"loader"`
	Tasks    TasksConfig    `mapstructure:"tasks"`
}

// SettingsConfig selects the setting store.
type SettingsConfig struct {
	// Backend is toml, bolt or memory.
	Backend string `mapstructure:"backend"`
	// Path is the store file. Empty means the user config directory.
	Path string `mapstructure:"path"`
	// Watch reloads the toml store when the file is edited externally.
	Watch bool `mapstructure:"watch"`
}

// LoaderConfig configures code unit loading.
type LoaderConfig struct {
	// Isolate skips failing code units instead of aborting the load.
	Isolate bool `mapstructure:"isolate"`
}

// TasksConfig configures the background runner.
type TasksConfig struct {
	// MaxWorkers bounds concurrent tasks. Zero is unbounded.
	MaxWorkers int `mapstructure:"max_workers"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Organization: "qtapp",
		Application:  "qtapp",
		LogLevel:     "info",
		Settings: SettingsConfig{
			Backend: BackendTOML,
			Watch:   true,
		},
	}
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"log-level":  "log_level",
	"repository": "repositories",
	"isolate":    "loader.isolate",
}

// LoadConfig reads configuration from path (optional), the environment and
// flags, in increasing precedence. A nil flag set is ignored.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("organization", cfg.Organization)
	v.SetDefault("application", cfg.Application)
	v.SetDefault("repositories", cfg.Repositories)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_json", cfg.LogJSON)
	v.SetDefault("settings.backend", cfg.Settings.Backend)
	v.SetDefault("settings.path", cfg.Settings.Path)
	v.SetDefault("settings.watch", cfg.Settings.Watch)
	v.SetDefault("loader.isolate", cfg.Loader.Isolate)
	v.SetDefault("tasks.max_workers", cfg.Tasks.MaxWorkers)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Settings.Backend {
	case BackendTOML, BackendBolt, BackendMemory:
	default:
		return fmt.Errorf("%w: settings backend %q", ErrInvalidConfig, c.Settings.Backend)
	}
	if c.Application == "" {
		return fmt.Errorf("%w: application name is empty", ErrInvalidConfig)
	}
	if c.Tasks.MaxWorkers < 0 {
		return fmt.Errorf("%w: tasks.max_workers is negative", ErrInvalidConfig)
	}
	return nil
}

// SettingsPath returns the settings store file. Without an explicit path the
// store lives under the user config directory as
// <organization>/<application>.<ext>.
func (c *Config) SettingsPath() (string, error) {
	if c.Settings.Path != "" {
		return c.Settings.Path, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	ext := ".toml"
	if c.Settings.Backend == BackendBolt {
		ext = ".db"
	}
	return filepath.Join(dir, c.Organization, c.Application+ext), nil
}
