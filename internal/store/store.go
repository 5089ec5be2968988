// Package store loads and saves named vector layers. Backends persist each
// artifact atomically so that an interrupted run never leaves a half-written
// layer behind an Exists check.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/wegman-software/parkarea-go/internal/config"
	"github.com/wegman-software/parkarea-go/internal/overlay"
	"github.com/wegman-software/parkarea-go/internal/textenc"
)

// ErrNotFound is returned by Load when the named layer does not exist
var ErrNotFound = errors.New("layer not found")

// Store is a named layer store
type Store interface {
	Load(ctx context.Context, name string) (*overlay.Layer, error)
	Save(ctx context.Context, name string, layer *overlay.Layer) error
	Exists(ctx context.Context, name string) (bool, error)
	// Delete removes a layer; deleting a missing layer is not an error
	Delete(ctx context.Context, name string) error
	Close() error
}

// Open returns the input and artifact stores described by cfg. For the
// directory store inputs are read from DataDir and artifacts written to
// OutputDir; the other backends serve both from one store.
func Open(ctx context.Context, cfg *config.Config) (inputs, artifacts Store, err error) {
	switch cfg.Store {
	case config.StoreDir:
		strategy := textenc.Strategy{Encodings: cfg.Encodings}
		inputs = NewDirStore(cfg.DataDir, cfg.Format, cfg.SRID, strategy)
		artifacts = NewDirStore(cfg.OutputDir, cfg.Format, cfg.SRID, strategy)
		return inputs, artifacts, nil
	case config.StorePostGIS:
		pg, err := NewPostGISStore(ctx, cfg.ConnectionString(), cfg.DBSchema, cfg.SRID, cfg.Workers)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg, nil
	case config.StoreMemory:
		mem := NewMemStore()
		return mem, mem, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}
