package overlay

// FilterPolygons keeps only polygon and multipolygon features. Points, lines,
// collections, null and empty geometries are discarded and counted.
func FilterPolygons(layer *Layer) (*Layer, int) {
	out := layer.derive(layer.Len())
	discarded := 0
	for _, f := range layer.Features {
		if !IsPolygonal(f.Geom) {
			discarded++
			continue
		}
		out.Features = append(out.Features, f)
	}
	return out, discarded
}
