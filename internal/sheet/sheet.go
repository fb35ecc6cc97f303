// =============================================================================
// MergeFiles - Sheet Utilities
// =============================================================================
//
// This package finds and cleans the tables buried inside decoded export
// sheets. Exports from the order portal do not start with their header row:
// a block of preamble rows (report title, order number, dates, blank lines)
// comes first, and the header row must be located by content.
//
// PIPELINE FOR ONE SHEET REGION:
//   1. FindHeaderRow  - locate the row containing a marker column label
//   2. CleanSheet     - drop unnamed and all-empty columns below it
//   3. ToRecords      - project every data row through the normalized header
//
// FindOrderID reads the correlation identifier out of the preamble.
//
// =============================================================================

package sheet

import (
	"strings"

	"go.uber.org/zap"

	"github.com/elsoutlet/MergeFiles/internal/types"
)

// DefaultMaxHeaderRows is how many leading rows are scanned for a header.
const DefaultMaxHeaderRows = 20

// unnamedPrefix marks placeholder header labels generated by spreadsheet
// tools for columns without a name. Matched literally and case-sensitively.
const unnamedPrefix = "Unnamed"

// =============================================================================
// HEADER DISCOVERY
// =============================================================================

// FindHeaderRow scans rows [0, min(maxRows, len(grid))) and returns the index
// of the first row holding a cell equal to marker after normalization
// (stringified, lowercased, trimmed). The boolean is false when no row in
// the scanned prefix contains the marker.
//
// PARAMETERS:
//   - grid: The decoded sheet.
//   - marker: The column label identifying the header row (e.g. "Item").
//   - maxRows: Size of the scanned prefix. Values <= 0 use DefaultMaxHeaderRows.
func FindHeaderRow(grid types.Grid, marker string, maxRows int) (int, bool) {
	if maxRows <= 0 {
		maxRows = DefaultMaxHeaderRows
	}
	want := types.NormalizeName(marker)

	limit := min(maxRows, len(grid))
	for i := 0; i < limit; i++ {
		for _, cell := range grid[i] {
			if types.NormalizeName(cell.String()) == want {
				return i, true
			}
		}
	}
	return 0, false
}

// NormalizeHeader stringifies, lowercases and trims every header cell.
// Length and order are preserved; empty cells become "".
func NormalizeHeader(header types.Row) []string {
	out := make([]string, len(header))
	for i, c := range header {
		out[i] = types.NormalizeName(c.String())
	}
	return out
}

// FindOrderID scans the whole grid for the first row whose first cell equals
// label exactly (no trimming, case-sensitive) and returns the cell at offset
// in that row. The boolean is false when no such row exists or the value
// cell is empty.
func FindOrderID(grid types.Grid, label string, offset int) (types.Cell, bool) {
	for _, row := range grid {
		if len(row) == 0 {
			continue
		}
		if row[0].String() != label {
			continue
		}
		v := row.At(offset)
		if v.IsEmpty() {
			return types.Empty(), false
		}
		return v, true
	}
	return types.Empty(), false
}

// =============================================================================
// CLEANING
// =============================================================================

// Cleaned is one sheet region after column pruning.
type Cleaned struct {
	// HeaderRow is the index of the header row within the source grid.
	HeaderRow int

	// Header holds the original labels of the surviving columns.
	Header []string

	// Normalized holds the same labels lowercased and trimmed.
	Normalized []string

	// Rows are the data rows re-projected onto the surviving columns.
	// Every row has exactly len(Header) cells.
	Rows []types.Row

	// Dropped lists the original labels of pruned columns, for diagnostics.
	Dropped []string
}

// CleanSheet takes the header at headerRowIndex and every row below it, then
// drops columns in two passes:
//  1. the header cell is empty or begins with "Unnamed";
//  2. every data cell in the column is empty.
//
// Surviving columns keep their order. The detected header is logged at debug
// level; logger may be nil.
func CleanSheet(grid types.Grid, headerRowIndex int, logger *zap.Logger) *Cleaned {
	if logger == nil {
		logger = zap.NewNop()
	}
	if headerRowIndex < 0 || headerRowIndex >= len(grid) {
		return &Cleaned{HeaderRow: headerRowIndex}
	}

	header := grid[headerRowIndex]
	data := grid[headerRowIndex+1:]

	var keep []int
	var dropped []string
	for i, h := range header {
		label := h.String()
		if h.IsEmpty() || strings.HasPrefix(label, unnamedPrefix) {
			dropped = append(dropped, label)
			continue
		}
		if columnEmpty(data, i) {
			dropped = append(dropped, label)
			continue
		}
		keep = append(keep, i)
	}

	cleaned := &Cleaned{
		HeaderRow:  headerRowIndex,
		Header:     make([]string, len(keep)),
		Normalized: make([]string, len(keep)),
		Rows:       make([]types.Row, len(data)),
		Dropped:    dropped,
	}
	for j, i := range keep {
		cleaned.Header[j] = header[i].String()
		cleaned.Normalized[j] = types.NormalizeName(header[i].String())
	}
	for r, row := range data {
		projected := make(types.Row, len(keep))
		for j, i := range keep {
			projected[j] = row.At(i)
		}
		cleaned.Rows[r] = projected
	}

	logger.Debug("detected header",
		zap.Int("row", headerRowIndex),
		zap.Strings("columns", cleaned.Header),
		zap.Strings("dropped", dropped),
		zap.Int("data_rows", len(data)))

	return cleaned
}

// columnEmpty reports whether column i is empty in every data row.
func columnEmpty(data types.Grid, i int) bool {
	for _, row := range data {
		if !row.At(i).IsEmpty() {
			return false
		}
	}
	return true
}

// =============================================================================
// RECORD PROJECTION
// =============================================================================

// ToRecords projects every data row of a cleaned region through its
// normalized header. Rows with no non-empty cell are skipped. Each record
// keeps a reference to the original header labels.
func (c *Cleaned) ToRecords() types.Table {
	table := make(types.Table, 0, len(c.Rows))
	for _, row := range c.Rows {
		if isRowEmpty(row) {
			continue
		}
		rec := types.NewRecord(c.Header)
		for j, key := range c.Normalized {
			rec.Set(key, row.At(j))
		}
		table = append(table, rec)
	}
	return table
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row types.Row) bool {
	for _, cell := range row {
		if !cell.IsEmpty() && strings.TrimSpace(cell.String()) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// REGION EXTRACTION
// =============================================================================

// Extract locates marker within the first maxRows rows and returns the
// cleaned records below it together with the header row index. When the
// marker is absent the index is -1 and the boolean is false.
func Extract(grid types.Grid, marker string, maxRows int, logger *zap.Logger) (types.Table, int, bool) {
	idx, ok := FindHeaderRow(grid, marker, maxRows)
	if !ok {
		return nil, -1, false
	}
	return CleanSheet(grid, idx, logger).ToRecords(), idx, true
}
