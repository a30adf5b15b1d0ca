package setting

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	tomlStore, err := OpenTOMLStore(filepath.Join(dir, "settings.toml"))
	if err != nil {
		t.Fatalf("OpenTOMLStore() error = %v", err)
	}
	boltStore, err := OpenBoltStore(filepath.Join(dir, "settings.db"))
	if err != nil {
		t.Fatalf("OpenBoltStore() error = %v", err)
	}
	t.Cleanup(func() {
		tomlStore.Close()
		boltStore.Close()
	})

	return map[string]Store{
		"memory": NewMemoryStore(),
		"toml":   tomlStore,
		"bolt":   boltStore,
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Set("application/selectedPlugin", "home"); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := store.Set("application/maximized", true); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			v, ok := store.Get("application/selectedPlugin")
			if !ok || v != "home" {
				t.Errorf("Get() = %v, %v, want home", v, ok)
			}
			if _, ok := store.Get("application/missing"); ok {
				t.Error("Get() on a missing key should report false")
			}

			want := []string{"application/maximized", "application/selectedPlugin"}
			if got := store.Keys(); !reflect.DeepEqual(got, want) {
				t.Errorf("Keys() = %v, want %v", got, want)
			}

			if err := store.Delete("application/maximized"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, ok := store.Get("application/maximized"); ok {
				t.Error("Get() after Delete() should report false")
			}
			if err := store.Sync(); err != nil {
				t.Errorf("Sync() error = %v", err)
			}
		})
	}
}

func TestStore_InvalidKey(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", "a//b", "/a", "a/"} {
				if err := store.Set(key, 1); !errors.Is(err, ErrInvalidKey) {
					t.Errorf("Set(%q) error = %v, want ErrInvalidKey", key, err)
				}
			}
		})
	}
}

func TestTOMLStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "settings.toml")

	store, err := OpenTOMLStore(path)
	if err != nil {
		t.Fatalf("OpenTOMLStore() error = %v", err)
	}
	if err := store.Set("application/enabledExtensions", []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Set("theme", "dark"); err != nil {
		t.Fatal(err)
	}

	// Nothing is written before Sync
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file exists before Sync(): %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(raw), "[application]") {
		t.Errorf("key groups should map to tables, got:\n%s", raw)
	}

	reopened, err := OpenTOMLStore(path)
	if err != nil {
		t.Fatalf("OpenTOMLStore() error = %v", err)
	}
	defer reopened.Close()

	v, ok := reopened.Get("application/enabledExtensions")
	if !ok {
		t.Fatal("Get() after reopen did not find the list")
	}
	if want := []any{"a", "b"}; !reflect.DeepEqual(v, want) {
		t.Errorf("Get() = %#v, want %#v", v, want)
	}
	if v, _ := reopened.Get("theme"); v != "dark" {
		t.Errorf("theme = %v, want dark", v)
	}
}

func TestTOMLStore_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte("not = [valid"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenTOMLStore(path); err == nil {
		t.Error("OpenTOMLStore() should fail on malformed TOML")
	}
}

func TestTOMLStore_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte("[application]\nselectedPlugin = \"home\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := OpenTOMLStore(path)
	if err != nil {
		t.Fatalf("OpenTOMLStore() error = %v", err)
	}
	defer store.Close()

	if err := os.WriteFile(path, []byte("theme = \"dark\"\n[application]\nselectedPlugin = \"docs\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	changed, err := store.Reload()
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	want := []string{"application/selectedPlugin", "theme"}
	if !reflect.DeepEqual(changed, want) {
		t.Errorf("Reload() = %v, want %v", changed, want)
	}
	if v, _ := store.Get("application/selectedPlugin"); v != "docs" {
		t.Errorf("selectedPlugin = %v, want docs", v)
	}
}

func TestTOMLStore_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	store, err := OpenTOMLStore(path)
	if err != nil {
		t.Fatalf("OpenTOMLStore() error = %v", err)
	}
	defer store.Close()

	changes := make(chan []string, 4)
	stop, err := store.Watch(func(keys []string) {
		changes <- keys
	})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer stop()

	if err := os.WriteFile(path, []byte("[application]\nmaximized = true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case keys := <-changes:
		if !reflect.DeepEqual(keys, []string{"application/maximized"}) {
			t.Errorf("changed keys = %v", keys)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}

	if err := stop(); err != nil {
		t.Errorf("stop() error = %v", err)
	}
}

func TestBoltStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")

	store, err := OpenBoltStore(path)
	if err != nil {
		t.Fatalf("OpenBoltStore() error = %v", err)
	}
	if err := store.Set("application/size", map[string]any{"width": 800, "height": 600}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := OpenBoltStore(path)
	if err != nil {
		t.Fatalf("OpenBoltStore() error = %v", err)
	}
	defer reopened.Close()

	v, ok := reopened.Get("application/size")
	if !ok {
		t.Fatal("Get() after reopen did not find the value")
	}
	size, ok := v.(map[string]any)
	if !ok || size["width"] != float64(800) {
		t.Errorf("Get() = %#v", v)
	}
}
