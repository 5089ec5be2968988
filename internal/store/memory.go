package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wegman-software/parkarea-go/internal/overlay"
)

// MemStore keeps layers in memory. Loads return a copy of the feature slice
// so callers can filter without affecting the stored layer.
type MemStore struct {
	mu     sync.RWMutex
	layers map[string]*overlay.Layer
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{layers: make(map[string]*overlay.Layer)}
}

func (s *MemStore) Load(_ context.Context, name string) (*overlay.Layer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.layers[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return copyLayer(l), nil
}

func (s *MemStore) Save(_ context.Context, name string, layer *overlay.Layer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers[name] = copyLayer(layer)
	return nil
}

func (s *MemStore) Exists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.layers[name]
	return ok, nil
}

func (s *MemStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.layers, name)
	return nil
}

// Names lists stored layer names in sorted order
func (s *MemStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.layers))
	for n := range s.layers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *MemStore) Close() error { return nil }

func copyLayer(l *overlay.Layer) *overlay.Layer {
	out := &overlay.Layer{Name: l.Name, SRID: l.SRID}
	out.Features = append(out.Features, l.Features...)
	return out
}
