package setting

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
)

// TOMLStore keeps settings in a TOML file. Key groups map to tables:
// "application/size" is the size key of the [application] table.
//
// Set only updates memory; Sync writes the file.
type TOMLStore struct {
	mu     sync.RWMutex
	path   string
	data   map[string]any
	dirty  bool
	closed bool
}

// OpenTOMLStore opens the store at path. A missing file is an empty store.
func OpenTOMLStore(path string) (*TOMLStore, error) {
	s := &TOMLStore{path: path}

	data, err := readTOML(path)
	if err != nil {
		return nil, err
	}
	s.data = data
	return s, nil
}

func readTOML(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]any), nil
		}
		return nil, fmt.Errorf("reading settings file %s: %w", path, err)
	}

	data := make(map[string]any)
	if err := toml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing settings file %s: %w", path, err)
	}
	return data, nil
}

// Path returns the settings file.
func (s *TOMLStore) Path() string {
	return s.path
}

// Get returns the value stored under key.
func (s *TOMLStore) Get(key string) (any, bool) {
	parts, err := splitKey(key)
	if err != nil {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.data, parts)
}

func lookup(data map[string]any, parts []string) (any, bool) {
	current := data
	for i, p := range parts {
		v, ok := current[p]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// Set stores value under key. A nil value deletes the key.
func (s *TOMLStore) Set(key string, value any) error {
	if value == nil {
		return s.Delete(key)
	}

	parts, err := splitKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	current := s.data
	for _, p := range parts[:len(parts)-1] {
		next, ok := current[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[p] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
	s.dirty = true
	return nil
}

// Delete removes key.
func (s *TOMLStore) Delete(key string) error {
	parts, err := splitKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	current := s.data
	for _, p := range parts[:len(parts)-1] {
		next, ok := current[p].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	if _, ok := current[parts[len(parts)-1]]; ok {
		delete(current, parts[len(parts)-1])
		s.dirty = true
	}
	return nil
}

// Keys returns every stored key, sorted.
func (s *TOMLStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flat := flatten(s.data, "")
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// flatten maps every leaf of data to its full key.
func flatten(data map[string]any, prefix string) map[string]any {
	flat := make(map[string]any)
	for k, v := range data {
		key := k
		if prefix != "" {
			key = prefix + KeySeparator + k
		}
		if table, ok := v.(map[string]any); ok {
			for fk, fv := range flatten(table, key) {
				flat[fk] = fv
			}
			continue
		}
		flat[key] = v
	}
	return flat
}

// Sync writes the file if anything changed since the last write.
func (s *TOMLStore) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if !s.dirty {
		return nil
	}
	if err := s.write(); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// write replaces the file atomically and normalises the in-memory values to
// their decoded form. Caller must hold s.mu.
func (s *TOMLStore) write() error {
	raw, err := toml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	normalized := make(map[string]any)
	if err := toml.Unmarshal(raw, &normalized); err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing settings: %w", err)
	}
	s.data = normalized
	return nil
}

// Reload rereads the file and returns the keys whose values changed.
// The file is ignored while unsynced changes are pending.
func (s *TOMLStore) Reload() ([]string, error) {
	data, err := readTOML(s.path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	if s.dirty {
		return nil, nil
	}

	before := flatten(s.data, "")
	after := flatten(data, "")

	var changed []string
	for k, v := range after {
		if old, ok := before[k]; !ok || !reflect.DeepEqual(old, v) {
			changed = append(changed, k)
		}
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)

	s.data = data
	return changed, nil
}

// Watch reloads the store when the file is edited externally and calls fn
// with the changed keys. fn runs on the watcher goroutine.
func (s *TOMLStore) Watch(fn func(keys []string)) (func() error, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: editors and Sync replace the file by rename.
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		fsw.Close()
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	name := filepath.Clean(s.path)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != name {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				changed, err := s.Reload()
				if err != nil || len(changed) == 0 {
					continue
				}
				fn(changed)
			case _, ok := <-fsw.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	var once sync.Once
	stop := func() error {
		var err error
		once.Do(func() {
			err = fsw.Close()
			<-done
		})
		return err
	}
	return stop, nil
}

// Close syncs pending changes and closes the store.
func (s *TOMLStore) Close() error {
	err := s.Sync()
	if err == ErrStoreClosed {
		return nil
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}
