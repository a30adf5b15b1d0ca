package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// setup writes a repository with two modules and a config file pointing at
// it. It returns the config path.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "modules", "repository.json"), `[
		{"id": "hello", "relativePath": "hello", "displayName": "Hello", "description": "Says hello"},
		{"id": "terminal", "relativePath": "terminal", "displayName": "Terminal"}
	]`)
	writeFile(t, filepath.Join(dir, "modules", "hello", "hello.lua"), `
		Greeting = shell.class(shell.Setting, { id = "hello/greeting", displayName = "Greeting", default = "hi" })
		Hello = shell.class(shell.Plugin, {
			id = "hello",
			icon = "hello.svg",
			tooltip = "Say hello",
			registrables = { Greeting },
		})
	`)
	writeFile(t, filepath.Join(dir, "modules", "terminal", "terminal.lua"), `
		Console = shell.class(shell.Dock, { id = "console", title = "Console" })
		Terminal = shell.class(shell.Plugin, { id = "terminal", priority = 20, registrables = { Console } })
	`)

	config := filepath.Join(dir, "appshell.yaml")
	writeFile(t, config, `
repositories:
  - `+filepath.Join(dir, "modules", "repository.json")+`
log_level: error
settings:
  backend: toml
  path: `+filepath.Join(dir, "settings.toml")+`
  watch: false
`)
	return config
}

func execute(t *testing.T, config string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand(IOStreams{In: strings.NewReader(""), Out: &out, ErrOut: &errOut})
	cmd.SetArgs(append([]string{"--config", config}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestExtensions_ListEnableDisable(t *testing.T) {
	config := setup(t)

	out, err := execute(t, config, "extensions", "list")
	if err != nil {
		t.Fatalf("extensions list error = %v", err)
	}
	if !strings.Contains(out, "hello") || !strings.Contains(out, "Says hello") {
		t.Errorf("extensions list output = %q", out)
	}
	if strings.Contains(out, "yes") {
		t.Errorf("no module should be enabled yet: %q", out)
	}

	if _, err := execute(t, config, "extensions", "enable", "terminal", "hello"); err != nil {
		t.Fatalf("extensions enable error = %v", err)
	}
	out, err = execute(t, config, "settings", "get", "application/enabledExtensions")
	if err != nil {
		t.Fatalf("settings get error = %v", err)
	}
	if got := strings.TrimSpace(out); got != "[hello, terminal]" {
		t.Errorf("enabled extensions = %q, want [hello, terminal]", got)
	}

	if _, err := execute(t, config, "ext", "disable", "hello"); err != nil {
		t.Fatalf("extensions disable error = %v", err)
	}
	out, _ = execute(t, config, "settings", "get", "application/enabledExtensions")
	if got := strings.TrimSpace(out); got != "[terminal]" {
		t.Errorf("enabled extensions = %q, want [terminal]", got)
	}
}

func TestExtensions_EnableUnknown(t *testing.T) {
	config := setup(t)

	_, err := execute(t, config, "extensions", "enable", "hello", "missing")
	if !errors.Is(err, ErrUnknownExtension) {
		t.Fatalf("extensions enable error = %v, want ErrUnknownExtension", err)
	}

	out, err := execute(t, config, "settings", "get", "application/enabledExtensions")
	if err != nil {
		t.Fatalf("settings get error = %v", err)
	}
	if got := strings.TrimSpace(out); got != "[]" {
		t.Errorf("enabled extensions after failed enable = %q, want []", got)
	}
}

func TestSettings_SetGet(t *testing.T) {
	config := setup(t)

	if _, err := execute(t, config, "settings", "set", "editor/fontSize", "14"); err != nil {
		t.Fatalf("settings set error = %v", err)
	}
	out, err := execute(t, config, "settings", "get", "editor/fontSize")
	if err != nil {
		t.Fatalf("settings get error = %v", err)
	}
	if got := strings.TrimSpace(out); got != "14" {
		t.Errorf("settings get = %q, want 14", got)
	}

	if _, err := execute(t, config, "settings", "get", "editor/missing"); !errors.Is(err, ErrNotSet) {
		t.Errorf("settings get missing error = %v, want ErrNotSet", err)
	}
}

func TestSettings_List(t *testing.T) {
	config := setup(t)
	if _, err := execute(t, config, "extensions", "enable", "hello"); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, config, "settings", "list", "greet")
	if err != nil {
		t.Fatalf("settings list error = %v", err)
	}
	if !strings.Contains(out, "hello/greeting") || !strings.Contains(out, "hi") {
		t.Errorf("settings list output = %q", out)
	}
}

func TestRun(t *testing.T) {
	config := setup(t)
	if _, err := execute(t, config, "extensions", "enable", "hello", "terminal"); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, config, "run")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}

	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if !strings.HasPrefix(line, " ") {
			lines = append(lines, line)
		}
	}
	want := []string{
		"nav hello  [hello.svg]",
		"--> hello",
		"dock console  Console",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("run output mismatch (-want +got):\n%s", diff)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"14", 14},
		{"true", true},
		{"1.5", 1.5},
		{"hello world", "hello world"},
		{"[a, b]", []any{"a", "b"}},
		{"key: value", "key: value"},
		{"", ""},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, parseValue(tt.raw)); diff != "" {
			t.Errorf("parseValue(%q) mismatch (-want +got):\n%s", tt.raw, diff)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v    any
		want string
	}{
		{int64(14), "14"},
		{"dark", "dark"},
		{true, "true"},
		{[]any{"a", "b"}, "[a, b]"},
		{[]string{}, "[]"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.v); got != tt.want {
			t.Errorf("formatValue(%#v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, setup(t), "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "appshell dev") {
		t.Errorf("version output = %q", out)
	}
}
