package mapping

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mesh-intelligence/todosync/pkg/types"
)

// Compile-time interface check.
var _ types.MappingStore = (*FileStore)(nil)

// FileStore keeps the mapping as a single file that is rewritten on every
// save.
type FileStore struct {
	path  string
	codec Codec
	now   func() time.Time
}

// NewFileStore returns a store for path. A nil codec selects JSONCodec.
func NewFileStore(path string, codec Codec) *FileStore {
	if codec == nil {
		codec = JSONCodec{}
	}
	return &FileStore{path: path, codec: codec, now: time.Now}
}

// Path returns the mapping file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the mapping file. A missing or empty file yields an empty
// mapping and no error; an unreadable or malformed one yields an empty
// mapping and an error wrapping types.ErrMappingCorrupt.
func (s *FileStore) Load(ctx context.Context) (*types.Mapping, error) {
	if err := ctx.Err(); err != nil {
		return types.NewMapping(), err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.NewMapping(), nil
		}
		return types.NewMapping(), fmt.Errorf("%w: reading %s: %v", types.ErrMappingCorrupt, s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return types.NewMapping(), nil
	}

	var m types.Mapping
	if err := s.codec.Unmarshal(data, &m); err != nil {
		return types.NewMapping(), fmt.Errorf("%w: parsing %s: %v", types.ErrMappingCorrupt, s.path, err)
	}
	m.Normalize()
	return &m, nil
}

// Save refreshes LastSync and atomically rewrites the mapping file. The
// first save adds the file name to the data directory's .gitignore.
func (s *FileStore) Save(ctx context.Context, m *types.Mapping) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating mapping directory: %w", err)
	}

	_, statErr := os.Stat(s.path)
	firstWrite := errors.Is(statErr, os.ErrNotExist)

	m.Touch(s.now())
	data, err := s.codec.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding mapping: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return err
	}

	if firstWrite {
		if err := EnsureIgnored(dir, filepath.Base(s.path)); err != nil {
			return fmt.Errorf("updating .gitignore: %w", err)
		}
	}
	return nil
}

// writeAtomic writes data to path using the temp-file, fsync, rename
// pattern so readers never observe a partial document.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".mapping-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing mapping: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
