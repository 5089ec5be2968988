package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDissolveOverlappingConstraints(t *testing.T) {
	// Two 4 ha squares overlapping by 1 ha.
	a := layerOf(t, "built_up_land", square(100, 100, 200))
	b := layerOf(t, "sssi", square(200, 200, 200))

	merged, err := Dissolve("merged", a, b)
	require.NoError(t, err)

	assert.InDelta(t, 7.0, merged.Area()/hectare, tolerance)
	assert.Equal(t, 1, merged.Parts())
	assert.LessOrEqual(t, merged.Area(), a.Area()+b.Area())
	assert.Equal(t, testSRID, merged.SRID)
}

func TestDissolveDisjointInputsKeepTotalArea(t *testing.T) {
	in := layerOf(t, "lakes", square(0, 0, 100), square(500, 500, 100))

	merged, err := Dissolve("lakes", in)
	require.NoError(t, err)

	assert.InDelta(t, in.Area(), merged.Area(), tolerance)
	assert.Equal(t, 2, merged.Parts())
}

func TestDissolveCoalescesTouchingPolygons(t *testing.T) {
	in := layerOf(t, "touching", square(0, 0, 100), square(100, 0, 100), square(200, 0, 100))

	merged, err := Dissolve("touching", in)
	require.NoError(t, err)

	assert.Equal(t, 1, merged.Parts())
	assert.InDelta(t, 30_000, merged.Area(), tolerance)
}

func TestDissolveIsIdempotent(t *testing.T) {
	in := layerOf(t, "habitats",
		square(0, 0, 300),
		square(200, 200, 300),
		square(1000, 1000, 50),
	)

	once, err := Dissolve("once", in)
	require.NoError(t, err)
	twice, err := Dissolve("twice", once.Layer())
	require.NoError(t, err)

	assert.InDelta(t, once.Area(), twice.Area(), tolerance)
	assert.LessOrEqual(t, twice.Parts(), once.Parts())
}

func TestDissolveEmptyInputs(t *testing.T) {
	tests := []struct {
		name   string
		layers []*Layer
	}{
		{name: "no layers"},
		{name: "nil layer", layers: []*Layer{nil}},
		{name: "empty layer", layers: []*Layer{NewLayer("empty", testSRID)}},
		{name: "only lines", layers: []*Layer{layerOf(t, "lines", "LINESTRING(0 0, 1 1)")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Dissolve("merged", tt.layers...)
			require.NoError(t, err)
			assert.True(t, c.IsEmpty())
			assert.Equal(t, ReasonNoInputs, c.EmptyReason)
			assert.Equal(t, 0, c.Layer().Len())
		})
	}
}

func TestDissolveRejectsMixedCRS(t *testing.T) {
	a := layerOf(t, "a", square(0, 0, 10))
	b := layerOf(t, "b", square(0, 0, 10))
	b.SRID = 3857

	_, err := Dissolve("merged", a, b)
	assert.ErrorIs(t, err, ErrCRSMismatch)
}
