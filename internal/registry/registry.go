// Package registry provides the keyed, uniqueness-enforcing collections that
// own every extension object in the shell.
//
// A Registry holds Registrables of one capability kind. Adding an item with
// an id that is already present fails with ErrDuplicateID and leaves the
// registry unchanged. Observers subscribed with OnAdded and OnRemoved are
// called synchronously: they have all run by the time Add or Remove returns.
//
// Registries are single-writer. They are meant to be mutated from the
// goroutine that owns them (the interactive loop); the internal lock only
// keeps concurrent readers from observing a torn map.
package registry

import (
	"fmt"
	"sync"
)

// Registrable is any object that can be owned by a Registry.
// ID must be non-empty and must not change after construction.
type Registrable interface {
	ID() string
}

// Observer is called with the item that was added or removed.
type Observer[T Registrable] func(item T)

// Registry is a keyed collection of Registrables of type T.
type Registry[T Registrable] struct {
	mu sync.RWMutex

	// items by id
	items map[string]T

	// insertion order, for deterministic iteration
	order []string

	added   []Observer[T]
	removed []Observer[T]
}

// New creates an empty registry.
func New[T Registrable]() *Registry[T] {
	return &Registry[T]{
		items: make(map[string]T),
	}
}

// Add inserts item and notifies added observers.
func (r *Registry[T]) Add(item T) error {
	id := item.ID()
	if id == "" {
		return ErrEmptyID
	}

	r.mu.Lock()
	if _, exists := r.items[id]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	r.items[id] = item
	r.order = append(r.order, id)
	observers := r.snapshotObservers(r.added)
	r.mu.Unlock()

	notify(observers, item)
	return nil
}

// AddAll adds items one by one. On failure the items before the failing one
// remain in the registry; the error names the index that failed.
func (r *Registry[T]) AddAll(items ...T) error {
	for i, item := range items {
		if err := r.Add(item); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// AddAllAtomic adds items only if every one of them can be added.
// Nothing is inserted and no observer runs when validation fails.
func (r *Registry[T]) AddAllAtomic(items ...T) error {
	r.mu.Lock()
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		id := item.ID()
		if id == "" {
			r.mu.Unlock()
			return fmt.Errorf("item %d: %w", i, ErrEmptyID)
		}
		if _, exists := r.items[id]; exists || seen[id] {
			r.mu.Unlock()
			return fmt.Errorf("item %d: %w: %s", i, ErrDuplicateID, id)
		}
		seen[id] = true
	}
	for _, item := range items {
		r.items[item.ID()] = item
		r.order = append(r.order, item.ID())
	}
	observers := r.snapshotObservers(r.added)
	r.mu.Unlock()

	for _, item := range items {
		notify(observers, item)
	}
	return nil
}

// Remove deletes item and notifies removed observers.
func (r *Registry[T]) Remove(item T) error {
	id := item.ID()

	r.mu.Lock()
	if _, exists := r.items[id]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.items, id)
	r.removeFromOrder(id)
	observers := r.snapshotObservers(r.removed)
	r.mu.Unlock()

	notify(observers, item)
	return nil
}

// RemoveAll removes items one by one, stopping at the first failure.
func (r *Registry[T]) RemoveAll(items ...T) error {
	for i, item := range items {
		if err := r.Remove(item); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// Get returns the item registered under id.
func (r *Registry[T]) Get(id string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	return item, ok
}

// Has reports whether id is registered.
func (r *Registry[T]) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[id]
	return ok
}

// All returns a snapshot of the registry keyed by id.
func (r *Registry[T]) All() map[string]T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]T, len(r.items))
	for id, item := range r.items {
		result[id] = item
	}
	return result
}

// Items returns a snapshot of the registered items in insertion order.
func (r *Registry[T]) Items() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]T, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.items[id])
	}
	return result
}

// Len returns the number of registered items.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// OnAdded subscribes fn to additions. The returned func unsubscribes.
func (r *Registry[T]) OnAdded(fn Observer[T]) func() {
	return r.subscribe(&r.added, fn)
}

// OnRemoved subscribes fn to removals. The returned func unsubscribes.
func (r *Registry[T]) OnRemoved(fn Observer[T]) func() {
	return r.subscribe(&r.removed, fn)
}

func (r *Registry[T]) subscribe(list *[]Observer[T], fn Observer[T]) func() {
	if fn == nil {
		return func() {}
	}

	r.mu.Lock()
	*list = append(*list, fn)
	index := len(*list) - 1
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		// Nil out instead of removing so later indexes stay valid.
		if index < len(*list) {
			(*list)[index] = nil
		}
	}
}

// snapshotObservers copies an observer list. Caller must hold r.mu.
func (r *Registry[T]) snapshotObservers(list []Observer[T]) []Observer[T] {
	result := make([]Observer[T], 0, len(list))
	for _, fn := range list {
		if fn != nil {
			result = append(result, fn)
		}
	}
	return result
}

// removeFromOrder drops id from the insertion order. Caller must hold r.mu.
func (r *Registry[T]) removeFromOrder(id string) {
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

func notify[T Registrable](observers []Observer[T], item T) {
	for _, fn := range observers {
		fn(item)
	}
}
