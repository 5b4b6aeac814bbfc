package mapping

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/todosync/pkg/types"
)

// Codec serializes a Mapping document.
type Codec interface {
	Marshal(m *types.Mapping) ([]byte, error)
	Unmarshal(data []byte, m *types.Mapping) error
}

// JSONCodec encodes the mapping as indented JSON.
type JSONCodec struct{}

// Marshal implements Codec.
func (JSONCodec) Marshal(m *types.Mapping) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// Unmarshal implements Codec.
func (JSONCodec) Unmarshal(data []byte, m *types.Mapping) error {
	return json.Unmarshal(data, m)
}

// YAMLCodec encodes the mapping as YAML.
type YAMLCodec struct{}

// Marshal implements Codec.
func (YAMLCodec) Marshal(m *types.Mapping) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal implements Codec.
func (YAMLCodec) Unmarshal(data []byte, m *types.Mapping) error {
	return yaml.Unmarshal(data, m)
}
