package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/twpayne/go-geos"

	"github.com/wegman-software/parkarea-go/internal/overlay"
)

// layerSchema stores one feature per row with its attributes as JSON
var layerSchema = arrow.NewSchema([]arrow.Field{
	{Name: "fid", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
	{Name: "srid", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
	{Name: "attrs", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "geom_wkb", Type: arrow.BinaryTypes.Binary, Nullable: true},
}, nil)

func writeParquet(path string, layer *overlay.Layer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Zstd),
		parquet.WithDictionaryDefault(false),
	)

	writer, err := pqarrow.NewFileWriter(layerSchema, f, writerProps, pqarrow.DefaultWriterProps())
	if err != nil {
		f.Close()
		return err
	}

	builder := array.NewRecordBuilder(memory.DefaultAllocator, layerSchema)
	defer builder.Release()

	for i, feat := range layer.Features {
		attrs, err := json.Marshal(feat.Attributes)
		if err != nil {
			writer.Close()
			return fmt.Errorf("feature %d: failed to encode attributes: %w", i, err)
		}

		builder.Field(0).(*array.Int64Builder).Append(int64(i + 1))
		builder.Field(1).(*array.Int32Builder).Append(int32(layer.SRID))
		builder.Field(2).(*array.StringBuilder).Append(string(attrs))
		if feat.Geom != nil {
			builder.Field(3).(*array.BinaryBuilder).Append(feat.Geom.ToWKB())
		} else {
			builder.Field(3).(*array.BinaryBuilder).AppendNull()
		}
	}

	if len(layer.Features) > 0 {
		rec := builder.NewRecord()
		err := writer.Write(rec)
		rec.Release()
		if err != nil {
			writer.Close()
			return err
		}
	}

	if err := writer.Close(); err != nil {
		return err
	}
	if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

func readParquet(ctx context.Context, path string) (*overlay.Layer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pf.Close()

	arrowReader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	tbl, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	defer tbl.Release()

	layer := overlay.NewLayer(path, 0)
	if tbl.NumRows() == 0 {
		return layer, nil
	}
	if tbl.NumCols() != int64(len(layerSchema.Fields())) {
		return nil, fmt.Errorf("unexpected parquet schema: %d columns", tbl.NumCols())
	}

	sridCol := tbl.Column(1).Data()
	attrsCol := tbl.Column(2).Data()
	geomCol := tbl.Column(3).Data()

	for c := 0; c < len(geomCol.Chunks()); c++ {
		sridChunk := sridCol.Chunk(c).(*array.Int32)
		attrsChunk := attrsCol.Chunk(c).(*array.String)
		geomChunk := geomCol.Chunk(c).(*array.Binary)

		for i := 0; i < geomChunk.Len(); i++ {
			if layer.SRID == 0 {
				layer.SRID = int(sridChunk.Value(i))
			}

			var attrs map[string]any
			if err := json.Unmarshal([]byte(attrsChunk.Value(i)), &attrs); err != nil {
				return nil, fmt.Errorf("failed to decode attributes: %w", err)
			}

			var g *geos.Geom
			if geomChunk.IsValid(i) {
				if g, err = geos.NewGeomFromWKB(geomChunk.Value(i)); err != nil {
					g = nil
				}
			}
			layer.Add(g, attrs)
		}
	}
	return layer, nil
}
