package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemainingAreaSingleConstraint(t *testing.T) {
	boundary := layerOf(t, "boundary", square(0, 0, 1000))
	constraint := coverageOf(t, "constraint", square(400, 400, 200))

	remaining, _, err := Difference(boundary, constraint)
	require.NoError(t, err)

	assert.InDelta(t, 96.0, remaining.Area()/hectare, tolerance)
}

func TestRemainingAreaOverlappingConstraints(t *testing.T) {
	boundary := layerOf(t, "boundary", square(0, 0, 1000))
	merged, err := Dissolve("merged",
		layerOf(t, "a", square(100, 100, 200)),
		layerOf(t, "b", square(200, 200, 200)),
	)
	require.NoError(t, err)
	require.InDelta(t, 7.0, merged.Area()/hectare, tolerance)

	remaining, _, err := Difference(boundary, merged)
	require.NoError(t, err)

	assert.InDelta(t, 93.0, remaining.Area()/hectare, tolerance)
}

func TestDifferenceIdentity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{name: "partial overlap", a: square(0, 0, 100), b: square(50, 50, 100)},
		{name: "b inside a", a: square(0, 0, 100), b: square(25, 25, 50)},
		{name: "a inside b", a: square(25, 25, 50), b: square(0, 0, 100)},
		{name: "disjoint", a: square(0, 0, 100), b: square(500, 500, 100)},
		{name: "shared edge", a: square(0, 0, 100), b: square(100, 0, 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := layerOf(t, "a", tt.a)
			b := coverageOf(t, "b", tt.b)

			diff, _, err := Difference(a, b)
			require.NoError(t, err)

			intersection := mustGeom(t, tt.a).Intersection(mustGeom(t, tt.b)).Area()
			assert.InDelta(t, a.Area()-intersection, diff.Area(), tolerance)
		})
	}
}

func TestDifferenceIsOrderSensitive(t *testing.T) {
	a := coverageOf(t, "a", square(0, 0, 100))
	b := coverageOf(t, "b", square(50, 0, 200))

	ab, err := DifferenceCoverage("a-b", a, b)
	require.NoError(t, err)
	ba, err := DifferenceCoverage("b-a", b, a)
	require.NoError(t, err)

	assert.InDelta(t, 5_000, ab.Area(), tolerance)
	assert.InDelta(t, 35_000, ba.Area(), tolerance)
	assert.False(t, ab.Geom.Equals(ba.Geom))
}

func TestDifferenceEdgeCases(t *testing.T) {
	t.Run("empty subtract leaves base", func(t *testing.T) {
		base := layerOf(t, "boundary", square(0, 0, 100))
		out, _, err := Difference(base, &Coverage{EmptyReason: ReasonNoInputs})
		require.NoError(t, err)
		assert.Equal(t, 1, out.Len())
		assert.InDelta(t, base.Area(), out.Area(), tolerance)
	})

	t.Run("nil subtract leaves base", func(t *testing.T) {
		base := layerOf(t, "boundary", square(0, 0, 100))
		out, _, err := Difference(base, nil)
		require.NoError(t, err)
		assert.InDelta(t, base.Area(), out.Area(), tolerance)
	})

	t.Run("empty base", func(t *testing.T) {
		_, _, err := Difference(NewLayer("boundary", testSRID), coverageOf(t, "b", square(0, 0, 1)))
		assert.ErrorIs(t, err, ErrEmptyResult)
	})

	t.Run("fully subtracted", func(t *testing.T) {
		base := layerOf(t, "boundary", square(10, 10, 10))
		out, consumed, err := Difference(base, coverageOf(t, "b", square(0, 0, 100)))
		require.NoError(t, err)
		assert.Equal(t, 0, out.Len())
		assert.Equal(t, 1, consumed)

		c, err := DifferenceCoverage("rest", coverageOf(t, "a", square(10, 10, 10)), coverageOf(t, "b", square(0, 0, 100)))
		require.NoError(t, err)
		assert.True(t, c.IsEmpty())
		assert.Equal(t, ReasonFullySubtracted, c.EmptyReason)
	})

	t.Run("keeps base attributes", func(t *testing.T) {
		base := NewLayer("boundary", testSRID)
		base.Add(mustGeom(t, square(0, 0, 100)), map[string]any{"NAME": "Dartmoor"})
		out, _, err := Difference(base, coverageOf(t, "b", square(0, 0, 50)))
		require.NoError(t, err)
		require.Equal(t, 1, out.Len())
		assert.Equal(t, "Dartmoor", out.Features[0].Attributes["NAME"])
	})
}

func TestDifferenceCountsDiscardedFeatures(t *testing.T) {
	base := layerOf(t, "boundary",
		square(0, 0, 100),
		square(500, 500, 10),
		"LINESTRING(0 0, 10 10)",
	)

	out, discarded, err := Difference(base, coverageOf(t, "b", square(490, 490, 50)))
	require.NoError(t, err)
	assert.Equal(t, 1, out.Len())
	assert.Equal(t, 2, discarded)

	_, discarded, err = Difference(base, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, discarded)
}
