package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/twpayne/go-geos"

	"github.com/wegman-software/parkarea-go/internal/overlay"
	"github.com/wegman-software/parkarea-go/internal/textenc"
)

// dBASE limits field names to 10 bytes
const maxFieldName = 10

// Files making up a shapefile, in the order they are renamed into place.
// The .shp goes last so that Exists only sees complete artifacts.
var shapefileParts = []string{".shx", ".dbf", ".cpg", ".shp"}

func readShapefile(path string, strategy textenc.Strategy) (*overlay.Layer, textenc.Result, error) {
	if cpg, err := os.ReadFile(strings.TrimSuffix(path, filepath.Ext(path)) + ".cpg"); err == nil {
		strategy = strategy.Prefer(string(cpg))
	}

	r, err := shp.Open(path)
	if err != nil {
		return nil, textenc.Result{}, fmt.Errorf("failed to open shapefile: %w", err)
	}
	defer r.Close()

	fields := r.Fields()
	var geoms []*geos.Geom
	var raw []string

	for r.Next() {
		idx, shape := r.Shape()
		g, err := toGEOS(shapeGeometry(shape))
		if err != nil {
			// Unparseable geometry is kept as a null feature and dropped by the filters
			g = nil
		}
		geoms = append(geoms, g)
		for j := range fields {
			raw = append(raw, r.ReadAttribute(idx, j))
		}
	}
	if err := r.Err(); err != nil {
		return nil, textenc.Result{}, fmt.Errorf("failed to read shapefile: %w", err)
	}

	decoded, err := strategy.Decode(raw)
	if err != nil {
		return nil, decoded, err
	}

	layer := overlay.NewLayer(filepath.Base(path), 0)
	for i, g := range geoms {
		attrs := make(map[string]any, len(fields))
		for j, f := range fields {
			if v := fieldValue(f, decoded.Values[i*len(fields)+j]); v != nil {
				attrs[f.String()] = v
			}
		}
		layer.Add(g, attrs)
	}
	return layer, decoded, nil
}

// fieldValue converts a dBASE cell to a Go value; blank cells are nil
func fieldValue(f shp.Field, s string) any {
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	if s == "" {
		return nil
	}
	switch f.Fieldtype {
	case 'N':
		if f.Precision == 0 {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n
			}
		}
		if x, err := strconv.ParseFloat(s, 64); err == nil {
			return x
		}
	case 'F':
		if x, err := strconv.ParseFloat(s, 64); err == nil {
			return x
		}
	case 'L':
		switch strings.ToUpper(s) {
		case "T", "Y":
			return true
		case "F", "N":
			return false
		}
		return nil
	}
	return s
}

// shapeGeometry converts a shapefile record to orb. Null and unsupported
// shapes yield nil.
func shapeGeometry(shape shp.Shape) orb.Geometry {
	switch s := shape.(type) {
	case *shp.Polygon:
		return assemblePolygons(splitRings(s.Parts, s.Points))
	case *shp.PolygonZ:
		return assemblePolygons(splitRings(s.Parts, s.Points))
	case *shp.PolyLine:
		var ml orb.MultiLineString
		for _, r := range splitRings(s.Parts, s.Points) {
			ml = append(ml, orb.LineString(r))
		}
		return ml
	case *shp.Point:
		return orb.Point{s.X, s.Y}
	}
	return nil
}

func splitRings(parts []int32, points []shp.Point) []orb.Ring {
	rings := make([]orb.Ring, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(points) {
			continue
		}
		ring := make(orb.Ring, 0, end-start)
		for _, p := range points[start:end] {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		rings = append(rings, ring)
	}
	return rings
}

// saveShapefile writes the layer into a scratch directory beside path and
// renames each part into place.
func saveShapefile(path string, layer *overlay.Layer) error {
	dir, err := os.MkdirTemp(filepath.Dir(path), ".shp-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := writeShapefile(filepath.Join(dir, base+".shp"), layer); err != nil {
		return err
	}

	final := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range shapefileParts {
		if err := os.Rename(filepath.Join(dir, base+ext), final+ext); err != nil {
			return fmt.Errorf("failed to move %s into place: %w", ext, err)
		}
	}
	return nil
}

type dbfColumn struct {
	key   string
	field shp.Field
}

func writeShapefile(path string, layer *overlay.Layer) error {
	columns := dbfColumns(layer)
	fields := make([]shp.Field, len(columns))
	for i, c := range columns {
		fields[i] = c.field
	}

	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return fmt.Errorf("failed to create shapefile: %w", err)
	}
	if err := w.SetFields(fields); err != nil {
		w.Close()
		return fmt.Errorf("failed to set fields: %w", err)
	}

	var werr error
	fid := 0
	for _, f := range layer.Features {
		g, err := fromGEOS(f.Geom)
		if err != nil {
			werr = err
			break
		}
		rings := shapefileRings(g)
		if len(rings) == 0 {
			continue
		}
		parts := make([][]shp.Point, len(rings))
		for i, r := range rings {
			pts := make([]shp.Point, len(r))
			for j, p := range r {
				pts[j] = shp.Point{X: p[0], Y: p[1]}
			}
			parts[i] = pts
		}

		row := int(w.Write(shp.NewPolygon(parts)))
		fid++
		for j, c := range columns {
			v := any(fid)
			if c.key != "" {
				v = dbfValue(c.field, f.Attributes[c.key])
			}
			if err := w.WriteAttribute(row, j, v); err != nil {
				werr = fmt.Errorf("failed to write attribute %s: %w", c.field, err)
				break
			}
		}
		if werr != nil {
			break
		}
	}
	w.Close()
	if werr != nil {
		return werr
	}

	cpg := strings.TrimSuffix(path, filepath.Ext(path)) + ".cpg"
	return os.WriteFile(cpg, []byte("UTF-8"), 0o644)
}

// dbfColumns derives the dBASE schema from the attribute values present.
// A layer without attributes gets a single FID column since readers
// require at least one field.
func dbfColumns(layer *overlay.Layer) []dbfColumn {
	kinds := make(map[string]byte)
	for _, f := range layer.Features {
		for k, v := range f.Attributes {
			kind := dbfKind(v)
			if kind == 0 {
				continue
			}
			if prev, ok := kinds[k]; ok && prev != kind {
				kind = widerKind(prev, kind)
			}
			kinds[k] = kind
		}
	}

	keys := make([]string, 0, len(kinds))
	for k := range kinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	columns := make([]dbfColumn, 0, len(keys))
	seen := make(map[string]bool)
	for _, k := range keys {
		name := k
		if len(name) > maxFieldName {
			name = name[:maxFieldName]
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		var field shp.Field
		switch kinds[k] {
		case 'N':
			field = shp.NumberField(name, 18)
		case 'F':
			field = shp.FloatField(name, 24, 6)
		default:
			field = shp.StringField(name, 254)
		}
		columns = append(columns, dbfColumn{key: k, field: field})
	}

	if len(columns) == 0 {
		columns = append(columns, dbfColumn{field: shp.NumberField("FID", 10)})
	}
	return columns
}

func dbfKind(v any) byte {
	switch v.(type) {
	case nil:
		return 0
	case int, int32, int64:
		return 'N'
	case float32, float64:
		return 'F'
	}
	return 'C'
}

func widerKind(a, b byte) byte {
	if a == 'C' || b == 'C' {
		return 'C'
	}
	return 'F'
}

// dbfValue converts v to one of the types go-shp can write
func dbfValue(field shp.Field, v any) any {
	if v == nil {
		return ""
	}
	switch field.Fieldtype {
	case 'N':
		switch n := v.(type) {
		case int:
			return n
		case int32:
			return int(n)
		case int64:
			return int(n)
		}
	case 'F':
		switch n := v.(type) {
		case float64:
			return n
		case float32:
			return float64(n)
		case int:
			return float64(n)
		case int32:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return fmt.Sprint(v)
}
