// =============================================================================
// MergeFiles - Workbook Parser Module
// =============================================================================
//
// This module reads spreadsheet workbooks into grids and writes grids back
// as single-sheet workbooks.
//
// SUPPORTED FORMATS:
//   - .xlsx  Office Open XML, read and written with excelize
//   - .xls   Legacy BIFF workbooks, read-only via extrame/xls
//
// Only the first worksheet of a workbook is read. Cells come back as text;
// numeric interpretation happens later in the pipeline.
//
// =============================================================================

package xlsxparser

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/elsoutlet/MergeFiles/internal/types"
)

// ErrNoSheets is returned for a workbook without any worksheet.
var ErrNoSheets = errors.New("workbook has no sheets")

// DefaultSheetName is used by Write when no name is given.
const DefaultSheetName = "Sheet1"

// maxXLSRows bounds how many rows are read from a legacy workbook.
const maxXLSRows = 100000

// maxSheetNameLength is the worksheet name limit imposed by Excel.
const maxSheetNameLength = 31

// =============================================================================
// READING
// =============================================================================

// Parse reads the first worksheet of an .xlsx workbook.
//
// PARAMETERS:
//   - data: The raw workbook bytes.
//
// RETURNS:
//   - The worksheet as a grid of text cells.
//   - ErrNoSheets if the workbook is empty, or a wrapped decode error.
func Parse(data []byte) (types.Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	// Get the first sheet name.
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, ErrNoSheets
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %s: %w", sheetName, err)
	}

	return types.GridFromStrings(rows), nil
}

// ParseXLS reads the first worksheet of a legacy .xls workbook.
func ParseXLS(data []byte) (types.Grid, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, ErrNoSheets
	}

	// ReadAllCells reads the first sheet only.
	rows := wb.ReadAllCells(maxXLSRows)
	return types.GridFromStrings(rows), nil
}

// =============================================================================
// WRITING
// =============================================================================

// Write renders a grid as a single-sheet .xlsx workbook. Number cells are
// written as numbers, empty cells are left blank.
//
// PARAMETERS:
//   - grid: The rows to write, header first.
//   - sheetName: The worksheet name. Empty means DefaultSheetName; longer
//     names are truncated to the Excel limit.
//
// RETURNS:
//   - The workbook bytes.
//   - An error if a row cannot be written.
func Write(grid types.Grid, sheetName string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	if r := []rune(sheetName); len(r) > maxSheetNameLength {
		sheetName = string(r[:maxSheetNameLength])
	}
	if sheetName != DefaultSheetName {
		if err := f.SetSheetName(DefaultSheetName, sheetName); err != nil {
			return nil, fmt.Errorf("failed to name sheet %q: %w", sheetName, err)
		}
	}

	for i, row := range grid {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := rowValues(row)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// rowValues converts cells to the values excelize writes natively.
func rowValues(row types.Row) []interface{} {
	values := make([]interface{}, len(row))
	for i, c := range row {
		switch c.Kind {
		case types.KindNumber:
			values[i] = c.Num
		case types.KindString:
			values[i] = c.Str
		default:
			values[i] = nil
		}
	}
	return values
}
