// Package setting provides the preference capability: Setting objects, the
// Service that owns them and the stores that persist their values.
package setting

import (
	"sync"

	"github.com/dshills/appshell/internal/loader"
	"github.com/dshills/appshell/internal/registry"
)

// Setting is a persisted preference. Its id is the store key.
type Setting interface {
	registry.Registrable

	// DisplayName is shown by the management surface. Settings without
	// one are not manageable.
	DisplayName() string
	Description() string
	DefaultValue() any

	// OnDataChanged subscribes fn to value changes. The returned func
	// unsubscribes.
	OnDataChanged(fn func(value any)) func()
	// NotifyDataChanged delivers value to the subscribers.
	NotifyDataChanged(value any)
}

// Base implements Setting. Embed it to build Go-native settings.
type Base struct {
	id           string
	displayName  string
	description  string
	defaultValue any

	mu        sync.Mutex
	observers []func(any)
}

// NewBase creates a Base.
func NewBase(id, displayName, description string, defaultValue any) *Base {
	return &Base{
		id:           id,
		displayName:  displayName,
		description:  description,
		defaultValue: defaultValue,
	}
}

// ID returns the setting key.
func (b *Base) ID() string { return b.id }

// DisplayName returns the display name.
func (b *Base) DisplayName() string { return b.displayName }

// Description returns the description.
func (b *Base) Description() string { return b.description }

// DefaultValue returns the value used when nothing is stored.
func (b *Base) DefaultValue() any { return b.defaultValue }

// OnDataChanged subscribes fn to value changes.
func (b *Base) OnDataChanged(fn func(value any)) func() {
	if fn == nil {
		return func() {}
	}

	b.mu.Lock()
	b.observers = append(b.observers, fn)
	index := len(b.observers) - 1
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.observers[index] = nil
	}
}

// NotifyDataChanged calls every subscriber with value.
func (b *Base) NotifyDataChanged(value any) {
	b.mu.Lock()
	observers := make([]func(any), 0, len(b.observers))
	for _, fn := range b.observers {
		if fn != nil {
			observers = append(observers, fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range observers {
		fn(value)
	}
}

// ArgService is the loader argument carrying the owning Service.
const ArgService = "service"

// ScriptSetting is a Setting declared by a code unit.
type ScriptSetting struct {
	*Base
	service *Service
}

// Value returns the current value from the owning service, or the default
// when the setting was loaded without one.
func (s *ScriptSetting) Value() any {
	if s.service == nil {
		return s.DefaultValue()
	}
	return s.service.Current(s.ID())
}

// NewFromScript is the loader factory for setting classes. It reads the
// displayName, description and default fields.
func NewFromScript(obj *loader.Object, args loader.Args) (registry.Registrable, error) {
	svc, _ := args[ArgService].(*Service)
	return &ScriptSetting{
		Base: NewBase(
			obj.ID(),
			obj.String("displayName"),
			obj.String("description"),
			obj.Value("default"),
		),
		service: svc,
	}, nil
}
