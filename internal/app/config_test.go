package app

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/pflag"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", nil)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appshell.toml")
	writeFile(t, path, `
organization = "acme"
application = "studio"
repositories = ["/opt/studio/repository.json"]
log_level = "debug"

[settings]
backend = "bolt"
path = "/tmp/studio.db"

[loader]
isolate = true

[tasks]
max_workers = 4
`)

	cfg, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	want := DefaultConfig()
	want.Organization = "acme"
	want.Application = "studio"
	want.Repositories = []string{"/opt/studio/repository.json"}
	want.LogLevel = "debug"
	want.Settings.Backend = BackendBolt
	want.Settings.Path = "/tmp/studio.db"
	want.Loader.Isolate = true
	want.Tasks.MaxWorkers = 4
	if diff := cmp.Diff(want, cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Application != "qtapp" {
		t.Errorf("Application = %q, want default", cfg.Application)
	}
}

func TestLoadConfig_EnvAndFlags(t *testing.T) {
	t.Setenv("APPSHELL_LOG_LEVEL", "warn")
	t.Setenv("APPSHELL_TASKS_MAX_WORKERS", "2")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "", "")
	flags.StringSlice("repository", nil, "")
	if err := flags.Parse([]string{"--repository", "a.json", "--repository", "b.json"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig("", flags)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want env value warn", cfg.LogLevel)
	}
	if cfg.Tasks.MaxWorkers != 2 {
		t.Errorf("MaxWorkers = %d, want 2", cfg.Tasks.MaxWorkers)
	}
	if diff := cmp.Diff([]string{"a.json", "b.json"}, cfg.Repositories); diff != "" {
		t.Errorf("Repositories mismatch (-want +got):\n%s", diff)
	}

	if err := flags.Set("log-level", "error"); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadConfig("", flags)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want flag value error", cfg.LogLevel)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"backend", func(c *Config) { c.Settings.Backend = "sqlite" }, "settings backend"},
		{"application", func(c *Config) { c.Application = "" }, "application name"},
		{"workers", func(c *Config) { c.Tasks.MaxWorkers = -1 }, "max_workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestConfig_SettingsPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.Path = "/etc/appshell/settings.toml"
	if got, _ := cfg.SettingsPath(); got != "/etc/appshell/settings.toml" {
		t.Errorf("SettingsPath() = %q, want the explicit path", got)
	}

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	for backend, ext := range map[string]string{BackendTOML: ".toml", BackendBolt: ".db"} {
		cfg := DefaultConfig()
		cfg.Settings.Backend = backend
		got, err := cfg.SettingsPath()
		if err != nil {
			t.Fatalf("SettingsPath() error = %v", err)
		}
		if want := filepath.Join("qtapp", "qtapp"+ext); !strings.HasSuffix(got, want) {
			t.Errorf("SettingsPath() = %q, want suffix %q", got, want)
		}
	}
}
