package module

import (
	"errors"
	"fmt"
)

// Manifest validation errors.
var (
	ErrMissingField  = errors.New("manifest: required field is missing")
	ErrNotAnArray    = errors.New("manifest: top level must be an array of modules")
	ErrTrailingData  = errors.New("manifest: unexpected data after array")
	ErrUnknownFormat = errors.New("manifest: unknown format")
)

// ManifestParseError reports a repository manifest that could not be parsed
// or validated. Nothing from the manifest is used when it is returned.
type ManifestParseError struct {
	// Path is the manifest file.
	Path string
	// Index is the offending entry, or -1 when the error is not entry specific.
	Index int
	// Field is the offending field, if any.
	Field string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ManifestParseError) Error() string {
	switch {
	case e.Index >= 0 && e.Field != "":
		return fmt.Sprintf("parse manifest %s: entry %d: %s: %v", e.Path, e.Index, e.Field, e.Err)
	case e.Index >= 0:
		return fmt.Sprintf("parse manifest %s: entry %d: %v", e.Path, e.Index, e.Err)
	default:
		return fmt.Sprintf("parse manifest %s: %v", e.Path, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *ManifestParseError) Unwrap() error {
	return e.Err
}
