// =============================================================================
// MergeFiles - Table Writer Module
// =============================================================================
//
// This module shapes merged records into export grids. Every emitted table
// has the canonical manifest header, whatever subset of columns the inputs
// carried:
//
//   Inmar Order # | Item | Description | ... | Warehouse     <- header row
//   555           | X1   |             | ... |               <- one per record
//
// Combine concatenates several such tables (optionally after a master
// workbook) into one grid for a single combined export.
//
// =============================================================================

package tablewriter

import (
	"strings"

	"github.com/elsoutlet/MergeFiles/internal/types"
)

// =============================================================================
// CANONICAL HEADER
// =============================================================================

// expectedHeader is the canonical output schema. Names are matched
// case-insensitively against record keys.
var expectedHeader = [...]string{
	"Inmar Order #",
	"Item",
	"Description",
	"Universal ID",
	"Alt Universal ID",
	"Actual UPC",
	"Quantity",
	"Last Known Price",
	"Extended Price",
	"Liquidation %",
	"Ext Liquidation Prc",
	"Manufacturer",
	"Brand",
	"Category",
	"Sub Category",
	"Department",
	"Condition",
	"Pallet ID",
	"Carton ID",
	"Lot #",
	"Retailer",
	"Return Reason",
	"Weight",
	"Ship Date",
	"Warehouse",
}

// ExpectedHeader returns a copy of the 25 canonical column names.
func ExpectedHeader() []string {
	out := make([]string, len(expectedHeader))
	copy(out, expectedHeader[:])
	return out
}

// =============================================================================
// RECORD SHAPING
// =============================================================================

// ObjectsToRows converts records into a grid shaped by columns. The first
// row is the header; each record becomes one row in input order. A column
// takes the value of the first record key matching it case-insensitively,
// or an empty cell. An empty record list yields just the header row.
//
// PARAMETERS:
//   - records: The merged records.
//   - columns: The output header. Nil means ExpectedHeader().
func ObjectsToRows(records types.Table, columns []string) types.Grid {
	if columns == nil {
		columns = ExpectedHeader()
	}

	grid := make(types.Grid, 0, len(records)+1)
	grid = append(grid, headerRow(columns))

	for _, rec := range records {
		row := make(types.Row, len(columns))
		for i, col := range columns {
			v, ok := rec.Lookup(col)
			if !ok {
				row[i] = types.Empty()
				continue
			}
			row[i] = v
		}
		grid = append(grid, row)
	}

	return grid
}

func headerRow(columns []string) types.Row {
	row := make(types.Row, len(columns))
	for i, c := range columns {
		row[i] = types.String(c)
	}
	return row
}

// =============================================================================
// COMBINING
// =============================================================================

// CombineOptions controls Combine.
type CombineOptions struct {
	// Dedupe drops data rows whose rendered cells exactly match an earlier
	// row. The master's rows count as earlier rows.
	Dedupe bool
}

// Combine concatenates the data rows of every entry, in order, under a
// single header. The header is the first entry's header row, unless a
// non-empty master grid is given: then the master's header is used verbatim
// and the master's data rows come before all entry rows. An empty master
// contributes nothing and the first entry's header is used.
//
// RETURNS:
//   - The combined grid, or nil when there are no entries and no master.
func Combine(entries []types.Grid, master types.Grid, options CombineOptions) types.Grid {
	if len(entries) == 0 && master == nil {
		return nil
	}

	var out types.Grid
	seen := make(map[string]struct{})
	appendRow := func(row types.Row) {
		if options.Dedupe {
			key := rowKey(row)
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}
		}
		out = append(out, row)
	}

	if len(master) > 0 {
		out = append(out, master[0])
		for _, row := range master[1:] {
			appendRow(row)
		}
	} else {
		for _, entry := range entries {
			if len(entry) > 0 {
				out = append(out, entry[0])
				break
			}
		}
	}

	for _, entry := range entries {
		if len(entry) < 2 {
			continue
		}
		for _, row := range entry[1:] {
			appendRow(row)
		}
	}

	return out
}

// rowKey renders a row for duplicate detection. Trailing empty cells do not
// distinguish rows.
func rowKey(row types.Row) string {
	cells := row.Strings()
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return strings.Join(cells, "\x1f")
}
