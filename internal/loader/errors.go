package loader

import (
	"errors"
	"fmt"
)

// Loader errors.
var (
	// ErrNoFactory is returned when no factory is registered for a kind.
	ErrNoFactory = errors.New("no factory registered for kind")

	// ErrNotAClass is returned when a value used as a class is not one.
	ErrNotAClass = errors.New("value is not a class")

	// ErrRegistrableCycle is returned when a class lists itself among its
	// registrables, directly or through other classes.
	ErrRegistrableCycle = errors.New("registrables cycle")

	// ErrTypeMismatch is returned by LoadAs when an instance has an
	// unexpected Go type.
	ErrTypeMismatch = errors.New("instance has unexpected type")
)

// LoadError describes a failure to load a path or one of its code units.
type LoadError struct {
	// Path is the file or directory that failed.
	Path string
	// Class is the class being instantiated, if any.
	Class string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Class != "" {
		return fmt.Sprintf("load %s: class %s: %v", e.Path, e.Class, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}
