package setting

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/spf13/cast"

	"github.com/dshills/appshell/internal/loader"
	"github.com/dshills/appshell/internal/logging"
	"github.com/dshills/appshell/internal/registry"
)

// Poster runs functions on the goroutine that owns the service. Post
// reports false when fn was rejected.
type Poster interface {
	Post(fn func()) bool
}

// Service owns the setting registry and the value store.
type Service struct {
	registry *registry.Registry[Setting]
	store    Store
	loader   *loader.Loader
	logger   *logging.Logger
}

// NewService creates a Service and registers the setting factory on l.
func NewService(store Store, l *loader.Loader, logger *logging.Logger) *Service {
	if store == nil {
		store = NewMemoryStore()
	}
	s := &Service{
		registry: registry.New[Setting](),
		store:    store,
		loader:   l,
		logger:   logging.OrNop(logger).WithComponent("settings"),
	}
	if l != nil {
		l.Register(loader.KindSetting, NewFromScript)
	}
	return s
}

// Registry returns the setting registry.
func (s *Service) Registry() *registry.Registry[Setting] {
	return s.registry
}

// Store returns the value store.
func (s *Service) Store() Store {
	return s.store
}

// AddSetting registers a setting.
func (s *Service) AddSetting(setting Setting) error {
	if err := s.registry.Add(setting); err != nil {
		return err
	}
	s.logger.Debug("added setting %q", setting.ID())
	return nil
}

// Setting returns the setting with id.
func (s *Service) Setting(id string) (Setting, bool) {
	return s.registry.Get(id)
}

// Settings returns every setting in registration order.
func (s *Service) Settings() []Setting {
	return s.registry.Items()
}

// Load instantiates the setting classes under path and registers them.
// Each instance receives the service as the "service" argument.
func (s *Service) Load(path string) error {
	if s.loader == nil {
		return fmt.Errorf("load settings %s: %w", path, loader.ErrNoFactory)
	}

	settings, err := loader.LoadAs[Setting](s.loader, path, loader.KindSetting, loader.Args{ArgService: s})
	if err != nil && settings == nil {
		return err
	}
	if addErr := s.registry.AddAll(settings...); addErr != nil {
		return addErr
	}
	return err
}

// SetValue stores value under key and notifies the matching setting.
func (s *Service) SetValue(key string, value any) error {
	if err := s.store.Set(key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	if setting, ok := s.registry.Get(key); ok {
		setting.NotifyDataChanged(value)
	}
	return nil
}

// Value returns the stored value for key, or def when none is stored.
func (s *Service) Value(key string, def any) any {
	if v, ok := s.store.Get(key); ok {
		return v
	}
	return def
}

// Current returns the stored value for key, falling back to the default of
// the registered setting.
func (s *Service) Current(key string) any {
	var def any
	if setting, ok := s.registry.Get(key); ok {
		def = setting.DefaultValue()
	}
	return s.Value(key, def)
}

// String returns the value for key as a string.
func (s *Service) String(key, def string) string {
	v, ok := s.store.Get(key)
	if !ok {
		return def
	}
	str, err := cast.ToStringE(v)
	if err != nil {
		return def
	}
	return str
}

// Bool returns the value for key as a bool.
func (s *Service) Bool(key string, def bool) bool {
	v, ok := s.store.Get(key)
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

// Int returns the value for key as an int.
func (s *Service) Int(key string, def int) int {
	v, ok := s.store.Get(key)
	if !ok {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return n
}

// Strings returns the value for key as a string list.
func (s *Service) Strings(key string, def []string) []string {
	v, ok := s.store.Get(key)
	if !ok {
		return def
	}
	list, err := cast.ToStringSliceE(v)
	if err != nil {
		return def
	}
	return list
}

// Sync forces pending values to durable storage.
func (s *Service) Sync() error {
	return s.store.Sync()
}

// Manageable returns the settings with a display name, sorted by it.
func (s *Service) Manageable() []Setting {
	var manageable []Setting
	for _, setting := range s.registry.Items() {
		if setting.DisplayName() != "" {
			manageable = append(manageable, setting)
		}
	}
	sort.SliceStable(manageable, func(i, j int) bool {
		return manageable[i].DisplayName() < manageable[j].DisplayName()
	})
	return manageable
}

// Search returns the manageable settings whose display name matches
// pattern, case-insensitively.
func (s *Service) Search(pattern string) ([]Setting, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("search settings: %w", err)
	}

	var matches []Setting
	for _, setting := range s.Manageable() {
		if re.MatchString(setting.DisplayName()) {
			matches = append(matches, setting)
		}
	}
	return matches, nil
}

// Completions returns the display names of the manageable settings.
func (s *Service) Completions() []string {
	manageable := s.Manageable()
	names := make([]string, 0, len(manageable))
	for _, setting := range manageable {
		names = append(names, setting.DisplayName())
	}
	return names
}

// Watch re-emits data-changed notifications for values edited outside the
// process. Notifications are delivered through poster. It returns a stop
// func; stores that cannot be watched return a no-op.
func (s *Service) Watch(poster Poster) (func() error, error) {
	w, ok := s.store.(Watcher)
	if !ok {
		return func() error { return nil }, nil
	}

	return w.Watch(func(keys []string) {
		posted := poster.Post(func() {
			for _, key := range keys {
				setting, ok := s.registry.Get(key)
				if !ok {
					continue
				}
				s.logger.Debug("setting %q changed on disk", key)
				setting.NotifyDataChanged(s.Current(key))
			}
		})
		if !posted {
			s.logger.Debug("dropping change notification for %d keys", len(keys))
		}
	})
}

// Close syncs and closes the store.
func (s *Service) Close() error {
	if err := s.store.Sync(); err != nil {
		s.logger.WithError(err).Warn("sync on close failed")
	}
	return s.store.Close()
}
