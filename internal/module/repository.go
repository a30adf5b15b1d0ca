package module

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	jsoncodec "github.com/dshills/appshell/internal/codec/json"
)

// Format is a manifest encoding.
type Format int

const (
	// FormatJSON is the default manifest encoding.
	FormatJSON Format = iota
	// FormatYAML is accepted for hand-written manifests.
	FormatYAML
)

// FormatFor picks the manifest format from a file extension.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Repository is a parsed manifest.
type Repository struct {
	// BasePath is the absolute directory containing the manifest.
	BasePath string
	// Metadata lists the manifest entries in file order.
	Metadata []ModuleMetadata
}

// LoadRepository reads and validates a repository manifest.
// Any malformed entry fails the whole manifest with a *ManifestParseError.
func LoadRepository(path string) (*Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	metadata, err := ParseManifest(data, FormatFor(abs))
	if err != nil {
		var parseErr *ManifestParseError
		if errors.As(err, &parseErr) {
			parseErr.Path = path
		}
		return nil, err
	}

	return &Repository{
		BasePath: filepath.Dir(abs),
		Metadata: metadata,
	}, nil
}

// ParseManifest decodes manifest data. Unknown fields are rejected.
func ParseManifest(data []byte, format Format) ([]ModuleMetadata, error) {
	var (
		entries []manifestEntry
		err     error
	)
	switch format {
	case FormatJSON:
		entries, err = decodeJSON(data)
	case FormatYAML:
		entries, err = decodeYAML(data)
	default:
		err = ErrUnknownFormat
	}
	if err != nil {
		return nil, &ManifestParseError{Index: -1, Err: err}
	}

	metadata := make([]ModuleMetadata, 0, len(entries))
	for i, entry := range entries {
		md, missing := entry.metadata()
		if missing != "" {
			return nil, &ManifestParseError{Index: i, Field: missing, Err: ErrMissingField}
		}
		metadata = append(metadata, md)
	}
	return metadata, nil
}

func decodeJSON(data []byte) ([]manifestEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotAnArray
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()

	var entries []manifestEntry
	if err := dec.Decode(&entries); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, ErrTrailingData
	}
	return entries, nil
}

func decodeYAML(data []byte) ([]manifestEntry, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.SequenceNode {
		return nil, ErrNotAnArray
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var entries []manifestEntry
	if err := dec.Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Save writes the repository metadata to path, in the format implied by its
// extension. Loading the written file yields the same metadata.
func (r *Repository) Save(path string) error {
	data, err := MarshalManifest(r.Metadata, FormatFor(path))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// MarshalManifest encodes metadata as a manifest.
func MarshalManifest(metadata []ModuleMetadata, format Format) ([]byte, error) {
	if metadata == nil {
		metadata = []ModuleMetadata{}
	}

	switch format {
	case FormatJSON:
		data, err := jsoncodec.MarshalIndent(metadata, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode manifest: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("encode manifest: %w", err)
		}
		return data, nil
	default:
		return nil, ErrUnknownFormat
	}
}

// Modules builds a disabled Module for every metadata entry.
func (r *Repository) Modules() []*Module {
	modules := make([]*Module, 0, len(r.Metadata))
	for _, md := range r.Metadata {
		modules = append(modules, New(r.BasePath, md))
	}
	return modules
}
