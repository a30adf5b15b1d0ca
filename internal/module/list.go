package module

import (
	"sync"

	"github.com/dshills/appshell/internal/logging"
)

// Columns of the management surface.
var Columns = []string{"Extension", "Description"}

// Observer is called with the index and module that was inserted or changed.
type Observer func(index int, m *Module)

// List is the ordered collection of every known module. It is append-only
// for the lifetime of a session.
//
// List does not reject duplicate ids; a duplicate is logged and appended.
type List struct {
	mu      sync.RWMutex
	modules []*Module

	inserted []Observer
	changed  []Observer

	logger *logging.Logger
}

// NewList creates an empty list.
func NewList(logger *logging.Logger) *List {
	return &List{
		logger: logging.OrNop(logger).WithComponent("modules"),
	}
}

// Append adds modules to the end of the list.
func (l *List) Append(modules ...*Module) {
	for _, m := range modules {
		l.mu.Lock()
		for _, existing := range l.modules {
			if existing.ID == m.ID {
				l.logger.Warn("duplicate module id %q (%s)", m.ID, m.Path)
				break
			}
		}
		l.modules = append(l.modules, m)
		index := len(l.modules) - 1
		observers := snapshot(l.inserted)
		l.mu.Unlock()

		for _, fn := range observers {
			fn(index, m)
		}
	}
}

// Items returns a snapshot of the modules in insertion order.
func (l *List) Items() []*Module {
	l.mu.RLock()
	defer l.mu.RUnlock()

	items := make([]*Module, len(l.modules))
	copy(items, l.modules)
	return items
}

// At returns the module at index.
func (l *List) At(index int) (*Module, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index < 0 || index >= len(l.modules) {
		return nil, false
	}
	return l.modules[index], true
}

// Len returns the number of modules.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.modules)
}

// Find returns the first module with id.
func (l *List) Find(id string) (*Module, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, m := range l.modules {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// Enabled returns the enabled modules in insertion order.
func (l *List) Enabled() []*Module {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var enabled []*Module
	for _, m := range l.modules {
		if m.Enabled {
			enabled = append(enabled, m)
		}
	}
	return enabled
}

// EnabledIDs returns the ids of the enabled modules in insertion order.
func (l *List) EnabledIDs() []string {
	enabled := l.Enabled()
	ids := make([]string, 0, len(enabled))
	for _, m := range enabled {
		ids = append(ids, m.ID)
	}
	return ids
}

// SetEnabled changes the enabled state of the module at index.
// It returns false when index is out of range.
func (l *List) SetEnabled(index int, enabled bool) bool {
	l.mu.Lock()
	if index < 0 || index >= len(l.modules) {
		l.mu.Unlock()
		return false
	}
	m := l.modules[index]
	if m.Enabled == enabled {
		l.mu.Unlock()
		return true
	}
	m.Enabled = enabled
	observers := snapshot(l.changed)
	l.mu.Unlock()

	for _, fn := range observers {
		fn(index, m)
	}
	return true
}

// SetEnabledByID changes the enabled state of every module with id, in list
// order. It reports whether any module matched.
func (l *List) SetEnabledByID(id string, enabled bool) bool {
	matched := false
	for _, index := range l.indexesOf(id) {
		l.SetEnabled(index, enabled)
		matched = true
	}
	return matched
}

func (l *List) indexesOf(id string) []int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var indexes []int
	for i, m := range l.modules {
		if m.ID == id {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

// Row returns the display cells of the module at index, one per column.
func (l *List) Row(index int) ([]string, bool) {
	m, ok := l.At(index)
	if !ok {
		return nil, false
	}
	return []string{m.DisplayName, m.Description}, true
}

// Checked reports the check state of the row at index.
func (l *List) Checked(index int) bool {
	m, ok := l.At(index)
	return ok && m.Enabled
}

// SetChecked sets the check state of the row at index.
func (l *List) SetChecked(index int, checked bool) bool {
	return l.SetEnabled(index, checked)
}

// OnInserted subscribes fn to appends. The returned func unsubscribes.
func (l *List) OnInserted(fn Observer) func() {
	return l.subscribe(&l.inserted, fn)
}

// OnChanged subscribes fn to enabled-state changes. The returned func
// unsubscribes.
func (l *List) OnChanged(fn Observer) func() {
	return l.subscribe(&l.changed, fn)
}

func (l *List) subscribe(list *[]Observer, fn Observer) func() {
	if fn == nil {
		return func() {}
	}

	l.mu.Lock()
	*list = append(*list, fn)
	index := len(*list) - 1
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if index < len(*list) {
			(*list)[index] = nil
		}
	}
}

func snapshot(list []Observer) []Observer {
	result := make([]Observer, 0, len(list))
	for _, fn := range list {
		if fn != nil {
			result = append(result, fn)
		}
	}
	return result
}
