package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/wegman-software/parkarea-go/internal/config"
	"github.com/wegman-software/parkarea-go/internal/logger"
	"github.com/wegman-software/parkarea-go/internal/overlay"
	"github.com/wegman-software/parkarea-go/internal/textenc"
)

// DirStore keeps layers as files under a root directory. A name with a file
// extension selects its reader; a bare name gets the store's default format.
type DirStore struct {
	root     string
	format   string
	srid     int
	strategy textenc.Strategy
}

// NewDirStore creates a directory store. srid is assigned to loaded layers
// whose format does not record one.
func NewDirStore(root, format string, srid int, strategy textenc.Strategy) *DirStore {
	return &DirStore{root: root, format: format, srid: srid, strategy: strategy}
}

// Path returns the file a layer name resolves to
func (s *DirStore) Path(name string) string {
	p := filepath.Join(s.root, filepath.FromSlash(name))
	if filepath.Ext(p) == "" {
		p += extension(s.format)
	}
	return p
}

func extension(format string) string {
	switch format {
	case config.FormatGeoJSON:
		return ".geojson"
	case config.FormatParquet:
		return ".parquet"
	}
	return ".shp"
}

func (s *DirStore) Load(ctx context.Context, name string) (*overlay.Layer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.Path(name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, err
	}

	var (
		layer   *overlay.Layer
		decoded textenc.Result
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		layer, decoded, err = readShapefile(path, s.strategy)
	case ".geojson", ".json":
		layer, decoded, err = readGeoJSON(path, s.strategy)
	case ".parquet":
		layer, err = readParquet(ctx, path)
		decoded.Outcome = textenc.DecodedPrimary
	default:
		return nil, fmt.Errorf("%s: unsupported layer format", path)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	if decoded.Outcome == textenc.DecodedFallback {
		logger.Get().Warn("Attribute text decoded with fallback encoding",
			zap.String("layer", name),
			zap.String("encoding", decoded.Encoding))
	}

	layer.Name = name
	if layer.SRID == 0 {
		layer.SRID = s.srid
	}
	return layer, nil
}

func (s *DirStore) Save(ctx context.Context, name string, layer *overlay.Layer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		err = saveShapefile(path, layer)
	case ".geojson", ".json":
		err = writeAtomic(path, func(tmp string) error { return writeGeoJSON(tmp, layer) })
	case ".parquet":
		err = writeAtomic(path, func(tmp string) error { return writeParquet(tmp, layer) })
	default:
		return fmt.Errorf("%s: unsupported layer format", path)
	}
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func (s *DirStore) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(s.Path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *DirStore) Delete(_ context.Context, name string) error {
	path := s.Path(name)
	files := []string{path}
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		base := strings.TrimSuffix(path, filepath.Ext(path))
		files = files[:0]
		for _, ext := range shapefileParts {
			files = append(files, base+ext)
		}
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *DirStore) Close() error { return nil }

// writeAtomic writes through a temporary file in the target directory and
// renames it into place.
func writeAtomic(path string, write func(tmp string) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	f.Close()

	if err := write(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
