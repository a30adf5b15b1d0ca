package module

import (
	"path/filepath"
)

// Module is a known extension bundle. Everything except Enabled is fixed when
// the module is built from its manifest entry.
type Module struct {
	ID          string
	DisplayName string
	Description string
	// Path is the module directory: the manifest's base path joined with
	// the entry's relative path.
	Path string
	// Enabled is the user's selection. Change it through List so observers
	// are notified.
	Enabled bool
}

// New builds a disabled Module from a manifest entry.
func New(basePath string, md ModuleMetadata) *Module {
	path := md.RelativePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(basePath, path)
	}

	return &Module{
		ID:          md.ID,
		DisplayName: md.DisplayName,
		Description: md.Description,
		Path:        path,
	}
}
