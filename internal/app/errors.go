// Package app wires the extension system into an application: it owns the
// loader, the plugin, dock and setting services, the background runner and
// the interactive loop, and routes plugin capabilities to their subsystem.
package app

import (
	"errors"
)

// Application errors.
var (
	// ErrClosed indicates the application has been closed.
	ErrClosed = errors.New("application closed")

	// ErrInvalidConfig indicates a configuration value is not usable.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownCapability indicates a registrable matched no subsystem.
	ErrUnknownCapability = errors.New("unknown capability")
)

// InitError reports a component that failed to start.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// RouteError reports a plugin registrable that could not be routed.
type RouteError struct {
	Plugin string
	ID     string
	Err    error
}

func (e *RouteError) Error() string {
	return "route " + e.Plugin + "/" + e.ID + ": " + e.Err.Error()
}

func (e *RouteError) Unwrap() error {
	return e.Err
}
