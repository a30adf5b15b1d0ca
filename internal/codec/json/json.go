// Package json is the JSON codec used for stored values and written
// manifests. It is backed by sonic configured for encoding/json compatible
// output.
package json

import (
	"github.com/bytedance/sonic"
)

var api = sonic.ConfigStd

// Marshal encodes v.
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// MarshalIndent encodes v with indentation.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}
