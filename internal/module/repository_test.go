package module

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRepository(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "modules.json", `[
		{"id": "a", "relativePath": "mods/a", "displayName": "Alpha", "description": "First"},
		{"id": "b", "relativePath": "mods/b", "displayName": "Beta"}
	]`)

	repo, err := LoadRepository(path)
	if err != nil {
		t.Fatalf("LoadRepository() error = %v", err)
	}

	wantBase, _ := filepath.Abs(dir)
	if repo.BasePath != wantBase {
		t.Errorf("BasePath = %q, want %q", repo.BasePath, wantBase)
	}
	if len(repo.Metadata) != 2 {
		t.Fatalf("len(Metadata) = %d, want 2", len(repo.Metadata))
	}

	want := ModuleMetadata{ID: "a", RelativePath: "mods/a", DisplayName: "Alpha", Description: "First"}
	if repo.Metadata[0] != want {
		t.Errorf("Metadata[0] = %+v, want %+v", repo.Metadata[0], want)
	}
	if repo.Metadata[1].Description != "" {
		t.Errorf("Metadata[1].Description = %q, want empty", repo.Metadata[1].Description)
	}
}

func TestLoadRepository_FailFast(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
		index   int
	}{
		{
			name:    "missing displayName",
			content: `[{"id": "a", "relativePath": "a", "displayName": "A"}, {"id": "b", "relativePath": "b"}]`,
			field:   "displayName",
			index:   1,
		},
		{
			name:    "missing id",
			content: `[{"relativePath": "a", "displayName": "A"}]`,
			field:   "id",
			index:   0,
		},
		{
			name:    "null relativePath",
			content: `[{"id": "a", "relativePath": null, "displayName": "A"}]`,
			field:   "relativePath",
			index:   0,
		},
		{
			name:    "unknown field",
			content: `[{"id": "a", "relativePath": "a", "displayName": "A", "version": "1"}]`,
			index:   -1,
		},
		{
			name:    "malformed",
			content: `[{"id": "a",`,
			index:   -1,
		},
		{
			name:    "object instead of array",
			content: `{"id": "a"}`,
			index:   -1,
		},
		{
			name:    "trailing data",
			content: `[] []`,
			index:   -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), "modules.json", tt.content)

			repo, err := LoadRepository(path)
			if repo != nil {
				t.Errorf("LoadRepository() returned a repository on failure")
			}

			var parseErr *ManifestParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("LoadRepository() error = %v, want *ManifestParseError", err)
			}
			if parseErr.Index != tt.index {
				t.Errorf("Index = %d, want %d", parseErr.Index, tt.index)
			}
			if parseErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", parseErr.Field, tt.field)
			}
			if parseErr.Path != path {
				t.Errorf("Path = %q, want %q", parseErr.Path, path)
			}
		})
	}
}

func TestLoadRepository_MissingFile(t *testing.T) {
	_, err := LoadRepository(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadRepository() error = %v, want os.ErrNotExist", err)
	}
}

func TestLoadRepository_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "modules.yaml", `
- id: a
  relativePath: mods/a
  displayName: Alpha
- id: b
  relativePath: mods/b
  displayName: Beta
  description: Second
`)

	repo, err := LoadRepository(path)
	if err != nil {
		t.Fatalf("LoadRepository() error = %v", err)
	}
	if len(repo.Metadata) != 2 || repo.Metadata[1].Description != "Second" {
		t.Errorf("Metadata = %+v", repo.Metadata)
	}

	bad := writeManifest(t, dir, "bad.yml", "- id: a\n  relativePath: a\n  displayName: A\n  extra: x\n")
	var parseErr *ManifestParseError
	if _, err := LoadRepository(bad); !errors.As(err, &parseErr) {
		t.Errorf("LoadRepository() unknown YAML field error = %v, want *ManifestParseError", err)
	}
}

func TestRepository_SaveRoundTrip(t *testing.T) {
	metadata := []ModuleMetadata{
		{ID: "a", RelativePath: "mods/a", DisplayName: "Alpha", Description: "First"},
		{ID: "b", RelativePath: "mods/b", DisplayName: "Beta"},
	}

	for _, name := range []string{"modules.json", "modules.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			repo := &Repository{Metadata: metadata}
			if err := repo.Save(path); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			loaded, err := LoadRepository(path)
			if err != nil {
				t.Fatalf("LoadRepository() error = %v", err)
			}
			if !reflect.DeepEqual(loaded.Metadata, metadata) {
				t.Errorf("Metadata = %+v, want %+v", loaded.Metadata, metadata)
			}
		})
	}
}

func TestRepository_Modules(t *testing.T) {
	base := t.TempDir()
	abs := filepath.Join(base, "elsewhere")
	repo := &Repository{
		BasePath: base,
		Metadata: []ModuleMetadata{
			{ID: "a", RelativePath: "mods/a", DisplayName: "Alpha"},
			{ID: "b", RelativePath: abs, DisplayName: "Beta"},
		},
	}

	modules := repo.Modules()
	if len(modules) != 2 {
		t.Fatalf("len(Modules()) = %d, want 2", len(modules))
	}
	if want := filepath.Join(base, "mods", "a"); modules[0].Path != want {
		t.Errorf("Path = %q, want %q", modules[0].Path, want)
	}
	if modules[1].Path != abs {
		t.Errorf("absolute Path = %q, want %q", modules[1].Path, abs)
	}
	for _, m := range modules {
		if m.Enabled {
			t.Errorf("module %s should start disabled", m.ID)
		}
	}
}
