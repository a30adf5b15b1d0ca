package registry

import "errors"

// Registry errors.
var (
	// ErrDuplicateID is returned when an item with the same id is already registered.
	ErrDuplicateID = errors.New("registrable already exists")

	// ErrNotFound is returned when removing an item that is not registered.
	ErrNotFound = errors.New("registrable not found")

	// ErrEmptyID is returned when adding an item without an id.
	ErrEmptyID = errors.New("registrable id is empty")
)
