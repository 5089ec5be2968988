package stats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
)

// NoData is the literal written for cells that were not measured
const NoData = "n/a"

// ErrUnknownRegion is returned when a row is written for a region the matrix
// was not created with.
var ErrUnknownRegion = errors.New("unknown region")

// Layout describes the columns of a result matrix
type Layout struct {
	IndexLabel   string // header of the region column
	ColumnPrefix string // e.g. "ATTR4_" gives columns ATTR4_1, ATTR4_2, ...
	Codes        []int  // category codes in column order
}

// Cell is one matrix value. A cell that is not Valid is no-data, which is
// different from a measured area of zero.
type Cell struct {
	Hectares float64
	Valid    bool
}

func (c Cell) String() string {
	if !c.Valid {
		return NoData
	}
	return strconv.FormatFloat(c.Hectares, 'f', -1, 64)
}

// Matrix accumulates region x category areas. Every cell starts as no-data.
// Rows may be written from several goroutines.
type Matrix struct {
	mu          sync.Mutex
	layout      Layout
	regions     []string
	known       map[int]bool
	rows        map[string]Row
	unavailable map[string]bool
}

// NewMatrix creates a matrix with one row per region, in the given order
func NewMatrix(regions []string, layout Layout) *Matrix {
	m := &Matrix{
		layout:      layout,
		regions:     append([]string(nil), regions...),
		known:       make(map[int]bool, len(layout.Codes)),
		rows:        make(map[string]Row, len(regions)),
		unavailable: make(map[string]bool),
	}
	m.layout.Codes = append([]int(nil), layout.Codes...)
	for _, c := range layout.Codes {
		m.known[c] = true
	}
	return m
}

// SetRow stores the measured categories of a region. Codes missing from the
// row stay no-data. Codes not in the layout are appended as new columns.
func (m *Matrix) SetRow(region string, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasRegion(region) {
		return fmt.Errorf("%w: %s", ErrUnknownRegion, region)
	}

	stored := make(Row, len(row))
	var added []int
	for code, ha := range row {
		stored[code] = ha
		if !m.known[code] {
			m.known[code] = true
			added = append(added, code)
		}
	}
	sort.Ints(added)
	m.layout.Codes = append(m.layout.Codes, added...)

	m.rows[region] = stored
	delete(m.unavailable, region)
	return nil
}

// MarkUnavailable marks every cell of a region as no-data in one step, for
// regions that have no source data at all.
func (m *Matrix) MarkUnavailable(region string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasRegion(region) {
		return fmt.Errorf("%w: %s", ErrUnknownRegion, region)
	}
	delete(m.rows, region)
	m.unavailable[region] = true
	return nil
}

// Unavailable reports whether a region was marked as having no data
func (m *Matrix) Unavailable(region string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unavailable[region]
}

// Cell returns the value for a region and category
func (m *Matrix) Cell(region string, code int) Cell {
	m.mu.Lock()
	defer m.mu.Unlock()

	ha, ok := m.rows[region][code]
	return Cell{Hectares: ha, Valid: ok}
}

// Columns returns the category column labels in order
func (m *Matrix) Columns() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.columnsLocked()
}

// Regions returns the row labels in order
func (m *Matrix) Regions() []string {
	return append([]string(nil), m.regions...)
}

// Total returns the measured hectares of a region and whether anything was
// measured for it.
func (m *Matrix) Total(region string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[region]
	if !ok {
		return 0, false
	}
	var total float64
	for _, ha := range row {
		total += ha
	}
	return total, true
}

// WriteCSV writes the matrix with one row per region. Cells hold hectares or
// the NoData literal.
func (m *Matrix) WriteCSV(w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cw := csv.NewWriter(w)

	header := append([]string{m.layout.IndexLabel}, m.columnsLocked()...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, region := range m.regions {
		record := make([]string, 0, len(header))
		record = append(record, region)
		row := m.rows[region]
		for _, code := range m.layout.Codes {
			ha, ok := row[code]
			record = append(record, Cell{Hectares: ha, Valid: ok}.String())
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func (m *Matrix) columnsLocked() []string {
	cols := make([]string, len(m.layout.Codes))
	for i, code := range m.layout.Codes {
		cols[i] = m.layout.ColumnPrefix + strconv.Itoa(code)
	}
	return cols
}

func (m *Matrix) hasRegion(region string) bool {
	for _, r := range m.regions {
		if r == region {
			return true
		}
	}
	return false
}
