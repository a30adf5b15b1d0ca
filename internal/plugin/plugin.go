// Package plugin provides the top-level extension capability and the
// Service that discovers modules, loads their plugins and owns the plugin
// registry.
//
// A plugin contributes an optional navigation entry and a fixed list of
// auxiliary registrables (docks, settings, ...) which the application routes
// to the matching subsystem when the plugin is added.
package plugin

import (
	"sort"

	"github.com/dshills/appshell/internal/loader"
	"github.com/dshills/appshell/internal/registry"
)

// DefaultPriority is the priority of a plugin that does not declare one.
const DefaultPriority = 10

// Navigation is a plugin's navigation entry.
type Navigation struct {
	Icon    string
	Tooltip string
}

// Plugin is a top-level extension capability.
type Plugin interface {
	registry.Registrable

	// Priority orders plugins at startup; lower comes first.
	Priority() int
	// Navigation returns the navigation entry, or nil for none.
	Navigation() *Navigation
	// Registrables returns the auxiliary capabilities. The list is fixed
	// at construction: repeated calls return the same elements.
	Registrables() []registry.Registrable
}

// Base implements Plugin.
type Base struct {
	id           string
	priority     int
	navigation   *Navigation
	registrables []registry.Registrable
}

// NewBase creates a Base. A navigation entry is only attached when both
// icon and tooltip are given.
func NewBase(id string, priority int, icon, tooltip string, registrables ...registry.Registrable) *Base {
	b := &Base{
		id:           id,
		priority:     priority,
		registrables: registrables,
	}
	if icon != "" && tooltip != "" {
		b.navigation = &Navigation{Icon: icon, Tooltip: tooltip}
	}
	return b
}

// ID returns the plugin id.
func (b *Base) ID() string { return b.id }

// Priority returns the startup priority.
func (b *Base) Priority() int { return b.priority }

// Navigation returns the navigation entry.
func (b *Base) Navigation() *Navigation { return b.navigation }

// Registrables returns a copy of the auxiliary list.
func (b *Base) Registrables() []registry.Registrable {
	out := make([]registry.Registrable, len(b.registrables))
	copy(out, b.registrables)
	return out
}

// NewFromScript is the loader factory for plugin classes. It reads the
// priority, icon, tooltip and registrables fields.
func NewFromScript(obj *loader.Object, _ loader.Args) (registry.Registrable, error) {
	registrables, err := obj.Registrables()
	if err != nil {
		return nil, err
	}
	return NewBase(
		obj.ID(),
		obj.Int("priority", DefaultPriority),
		obj.String("icon"),
		obj.String("tooltip"),
		registrables...,
	), nil
}

// SortByPriority returns plugins ordered by ascending priority. Plugins with
// equal priority keep their relative order.
func SortByPriority(plugins []Plugin) []Plugin {
	sorted := make([]Plugin, len(plugins))
	copy(sorted, plugins)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return sorted
}
