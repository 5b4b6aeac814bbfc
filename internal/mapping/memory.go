package mapping

import (
	"context"
	"sync"
	"time"

	"github.com/mesh-intelligence/todosync/pkg/types"
)

// Compile-time interface check.
var _ types.MappingStore = (*MemoryStore)(nil)

// MemoryStore keeps an encoded copy of the mapping in memory, so each Load
// returns an independent value just like a file store does.
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	codec Codec
	saves int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{codec: JSONCodec{}}
}

// Load implements types.MappingStore.
func (s *MemoryStore) Load(ctx context.Context) (*types.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return types.NewMapping(), nil
	}
	var m types.Mapping
	if err := s.codec.Unmarshal(s.data, &m); err != nil {
		return types.NewMapping(), err
	}
	m.Normalize()
	return &m, nil
}

// Save implements types.MappingStore.
func (s *MemoryStore) Save(ctx context.Context, m *types.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.Touch(time.Now())
	data, err := s.codec.Marshal(m)
	if err != nil {
		return err
	}
	s.data = data
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
