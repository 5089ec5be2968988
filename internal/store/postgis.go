package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"github.com/wegman-software/parkarea-go/internal/logger"
	"github.com/wegman-software/parkarea-go/internal/overlay"
	"github.com/wegman-software/parkarea-go/internal/wkb"
)

// PostGISStore keeps each layer in its own table. The table name is the last
// element of the layer name, so "clipped/SSSI_clipped" lives in
// <schema>.SSSI_clipped.
type PostGISStore struct {
	pool   *pgxpool.Pool
	schema string
	srid   int
}

// NewPostGISStore connects to PostgreSQL and makes sure PostGIS and the
// target schema exist.
func NewPostGISStore(ctx context.Context, connString, schema string, srid, maxConns int) (*PostGISStore, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS postgis"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create PostGIS extension: %w", err)
	}
	if schema == "" {
		schema = "public"
	}
	if schema != "public" {
		if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &PostGISStore{pool: pool, schema: schema, srid: srid}, nil
}

func (s *PostGISStore) table(name string) pgx.Identifier {
	return pgx.Identifier{s.schema, path.Base(name)}
}

func (s *PostGISStore) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", s.table(name).Sanitize()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up %s: %w", name, err)
	}
	return exists, nil
}

func (s *PostGISStore) Load(ctx context.Context, name string) (*overlay.Layer, error) {
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	query := fmt.Sprintf(
		"SELECT attrs::text, ST_AsEWKB(geom) FROM %s ORDER BY fid",
		s.table(name).Sanitize())
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", name, err)
	}
	defer rows.Close()

	layer := overlay.NewLayer(name, 0)
	for rows.Next() {
		var (
			attrsJSON string
			geomWKB   []byte
		)
		if err := rows.Scan(&attrsJSON, &geomWKB); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", name, err)
		}

		var attrs map[string]any
		if err := json.Unmarshal([]byte(attrsJSON), &attrs); err != nil {
			return nil, fmt.Errorf("failed to decode attributes: %w", err)
		}

		var g *geos.Geom
		if geomWKB != nil {
			if srid, ok, err := wkb.SRID(geomWKB); err == nil && ok && layer.SRID == 0 {
				layer.SRID = srid
			}
			if g, err = geos.NewGeomFromWKB(geomWKB); err != nil {
				g = nil
			}
		}
		layer.Add(g, attrs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	if layer.SRID == 0 {
		layer.SRID = s.srid
	}
	return layer, nil
}

// Save replaces the table in a single transaction, so readers either see the
// previous artifact or the complete new one.
func (s *PostGISStore) Save(ctx context.Context, name string, layer *overlay.Layer) error {
	srid := layer.SRID
	if srid == 0 {
		srid = s.srid
	}
	table := s.table(name).Sanitize()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	createSQL := fmt.Sprintf(`
		DROP TABLE IF EXISTS %[1]s CASCADE;
		CREATE TABLE %[1]s (
			fid BIGINT PRIMARY KEY,
			attrs JSONB NOT NULL,
			geom GEOMETRY(Geometry, %[2]d)
		);
		CREATE TEMP TABLE parkarea_load_tmp (
			fid BIGINT,
			attrs TEXT,
			geom_ewkb BYTEA
		) ON COMMIT DROP
	`, table, srid)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	rows := make([][]any, 0, len(layer.Features))
	for i, f := range layer.Features {
		attrs, err := json.Marshal(f.Attributes)
		if err != nil {
			return fmt.Errorf("feature %d: failed to encode attributes: %w", i, err)
		}
		var ewkb []byte
		if f.Geom != nil {
			if ewkb, err = wkb.WithSRID(f.Geom.ToWKB(), srid); err != nil {
				return fmt.Errorf("feature %d: %w", i, err)
			}
		}
		rows = append(rows, []any{int64(i + 1), string(attrs), ewkb})
	}

	count, err := tx.CopyFrom(ctx,
		pgx.Identifier{"parkarea_load_tmp"},
		[]string{"fid", "attrs", "geom_ewkb"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("COPY failed: %w", err)
	}

	insertSQL := fmt.Sprintf(`
		INSERT INTO %s (fid, attrs, geom)
		SELECT fid, attrs::jsonb, ST_GeomFromEWKB(geom_ewkb)
		FROM parkarea_load_tmp
	`, table)
	if _, err := tx.Exec(ctx, insertSQL); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}

	if len(layer.Features) > 0 {
		indexSQL := fmt.Sprintf("CREATE INDEX ON %s USING GIST (geom)", table)
		if _, err := tx.Exec(ctx, indexSQL); err != nil {
			return fmt.Errorf("failed to index %s: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit %s: %w", table, err)
	}

	logger.Get().Debug("Saved layer to PostGIS",
		zap.String("table", table),
		zap.Int64("rows", count))
	return nil
}

func (s *PostGISStore) Delete(ctx context.Context, name string) error {
	if _, err := s.pool.Exec(ctx, "DROP TABLE IF EXISTS "+s.table(name).Sanitize()); err != nil {
		return fmt.Errorf("failed to drop %s: %w", name, err)
	}
	return nil
}

func (s *PostGISStore) Close() error {
	s.pool.Close()
	return nil
}

var _ Store = (*PostGISStore)(nil)
