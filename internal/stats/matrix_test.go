package stats

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLayout() Layout {
	return Layout{IndexLabel: "National Park", ColumnPrefix: "ATTR4_", Codes: []int{1, 2, 3}}
}

func TestMatrixCellsDefaultToNoData(t *testing.T) {
	m := NewMatrix([]string{"Dartmoor"}, testLayout())

	cell := m.Cell("Dartmoor", 1)
	assert.False(t, cell.Valid)
	assert.Equal(t, NoData, cell.String())

	_, measured := m.Total("Dartmoor")
	assert.False(t, measured)
}

func TestMatrixRegionWithoutSourceIsUnavailable(t *testing.T) {
	m := NewMatrix([]string{"Dartmoor", "South Downs"}, testLayout())
	require.NoError(t, m.SetRow("Dartmoor", Row{1: 0}))
	require.NoError(t, m.MarkUnavailable("South Downs"))

	assert.True(t, m.Unavailable("South Downs"))
	for _, code := range []int{1, 2, 3} {
		assert.False(t, m.Cell("South Downs", code).Valid, "code %d", code)
	}

	// A measured zero is a value, not no-data.
	zero := m.Cell("Dartmoor", 1)
	assert.True(t, zero.Valid)
	assert.Equal(t, "0", zero.String())
}

func TestMatrixCategoryAbsentInOneRegion(t *testing.T) {
	m := NewMatrix([]string{"Exmoor", "Broads"}, testLayout())
	require.NoError(t, m.SetRow("Exmoor", Row{2: 12.5}))
	require.NoError(t, m.SetRow("Broads", Row{1: 3}))

	assert.Equal(t, Cell{Hectares: 12.5, Valid: true}, m.Cell("Exmoor", 2))
	assert.False(t, m.Cell("Broads", 2).Valid)
}

func TestMatrixAppendsUnexpectedCodes(t *testing.T) {
	m := NewMatrix([]string{"Exmoor"}, testLayout())
	require.NoError(t, m.SetRow("Exmoor", Row{99: 1, 51: 2, 1: 3}))

	assert.Equal(t, []string{"ATTR4_1", "ATTR4_2", "ATTR4_3", "ATTR4_51", "ATTR4_99"}, m.Columns())
}

func TestMatrixUnknownRegion(t *testing.T) {
	m := NewMatrix([]string{"Exmoor"}, testLayout())

	assert.ErrorIs(t, m.SetRow("Snowdonia", Row{1: 1}), ErrUnknownRegion)
	assert.ErrorIs(t, m.MarkUnavailable("Snowdonia"), ErrUnknownRegion)
}

func TestMatrixWriteCSV(t *testing.T) {
	m := NewMatrix([]string{"Peak District", "New Forest", "Broads"}, testLayout())
	require.NoError(t, m.SetRow("Peak District", Row{1: 1.25, 3: 40}))
	require.NoError(t, m.MarkUnavailable("New Forest"))

	var buf bytes.Buffer
	require.NoError(t, m.WriteCSV(&buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	want := [][]string{
		{"National Park", "ATTR4_1", "ATTR4_2", "ATTR4_3"},
		{"Peak District", "1.25", "n/a", "40"},
		{"New Forest", "n/a", "n/a", "n/a"},
		{"Broads", "n/a", "n/a", "n/a"},
	}
	assert.Equal(t, want, records)
}

func TestMatrixConcurrentRows(t *testing.T) {
	regions := make([]string, 32)
	for i := range regions {
		regions[i] = fmt.Sprintf("region-%02d", i)
	}
	m := NewMatrix(regions, testLayout())

	var wg sync.WaitGroup
	for i, r := range regions {
		wg.Add(1)
		go func(i int, region string) {
			defer wg.Done()
			if i%2 == 0 {
				_ = m.SetRow(region, Row{1: float64(i), 100 + i: 1})
			} else {
				_ = m.MarkUnavailable(region)
			}
		}(i, r)
	}
	wg.Wait()

	for i, r := range regions {
		if i%2 == 0 {
			assert.Equal(t, float64(i), m.Cell(r, 1).Hectares)
		} else {
			assert.True(t, m.Unavailable(r))
		}
	}
	assert.Len(t, m.Columns(), 3+16)
}
