// Package module describes installable extension bundles: the repository
// manifests that list them, the modules built from those manifests, and the
// ordered list the shell keeps of every known module.
package module

// ModuleMetadata is one manifest entry.
type ModuleMetadata struct {
	// ID uniquely identifies the module.
	ID string `json:"id" yaml:"id"`
	// RelativePath locates the module directory from the manifest.
	RelativePath string `json:"relativePath" yaml:"relativePath"`
	// DisplayName is shown in the management surface.
	DisplayName string `json:"displayName" yaml:"displayName"`
	// Description is optional.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// manifestEntry distinguishes absent fields from empty ones while decoding.
type manifestEntry struct {
	ID           *string `json:"id" yaml:"id"`
	RelativePath *string `json:"relativePath" yaml:"relativePath"`
	DisplayName  *string `json:"displayName" yaml:"displayName"`
	Description  *string `json:"description" yaml:"description"`
}

// metadata validates the entry and converts it. It returns the name of the
// first missing required field.
func (e manifestEntry) metadata() (ModuleMetadata, string) {
	required := []struct {
		name  string
		value *string
	}{
		{"id", e.ID},
		{"relativePath", e.RelativePath},
		{"displayName", e.DisplayName},
	}
	for _, f := range required {
		if f.value == nil {
			return ModuleMetadata{}, f.name
		}
	}

	md := ModuleMetadata{
		ID:           *e.ID,
		RelativePath: *e.RelativePath,
		DisplayName:  *e.DisplayName,
	}
	if e.Description != nil {
		md.Description = *e.Description
	}
	return md, ""
}
