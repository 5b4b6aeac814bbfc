package types

import (
	"context"
	"errors"
)

// MappingStore loads and saves the whole Mapping document.
type MappingStore interface {
	// Load always returns a usable Mapping. When the stored document is
	// missing the Mapping is empty and the error is nil; when it is
	// unreadable the Mapping is empty and the error wraps ErrMappingCorrupt.
	Load(ctx context.Context) (*Mapping, error)

	// Save replaces the stored document with m.
	Save(ctx context.Context, m *Mapping) error
}

// ErrMappingCorrupt reports a stored mapping that could not be read or parsed.
var ErrMappingCorrupt = errors.New("mapping store corrupt")
