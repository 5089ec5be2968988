package store

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/paulmach/orb/geojson"

	"github.com/wegman-software/parkarea-go/internal/overlay"
	"github.com/wegman-software/parkarea-go/internal/textenc"
)

func readGeoJSON(path string, strategy textenc.Strategy) (*overlay.Layer, textenc.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, textenc.Result{}, err
	}

	decoded := textenc.Result{Encoding: "utf-8", Outcome: textenc.DecodedPrimary}
	if !utf8.Valid(data) {
		decoded, err = strategy.Decode([]string{string(data)})
		if err != nil {
			return nil, decoded, err
		}
		data = []byte(decoded.Values[0])
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, decoded, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	layer := overlay.NewLayer(path, 0)
	for _, f := range fc.Features {
		g, err := toGEOS(f.Geometry)
		if err != nil {
			g = nil
		}
		layer.Add(g, map[string]any(f.Properties))
	}
	return layer, decoded, nil
}

func writeGeoJSON(path string, layer *overlay.Layer) error {
	fc := geojson.NewFeatureCollection()
	for _, f := range layer.Features {
		g, err := fromGEOS(f.Geom)
		if err != nil {
			return err
		}
		if g == nil {
			continue
		}
		feature := geojson.NewFeature(g)
		for k, v := range f.Attributes {
			feature.Properties[k] = v
		}
		fc.Append(feature)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
