// =============================================================================
// MergeFiles - Shared Types
// =============================================================================
//
// This package contains the types shared by every stage of the merge
// pipeline. Keeping them here avoids import cycles between:
//   - sheet        (header discovery and cleaning)
//   - converter    (aggregation, correlation, derived fields)
//   - tablewriter  (canonical output shaping)
//   - csvparser / xlsxparser (decode and encode at the boundary)
//
// =============================================================================

package types

import (
	"math"
	"strconv"
	"strings"
)

// =============================================================================
// CELL VALUES
// =============================================================================

// Kind identifies which variant a Cell holds.
type Kind uint8

const (
	// KindEmpty is an absent or blank cell.
	KindEmpty Kind = iota

	// KindString is a text cell. Decoders produce these.
	KindString

	// KindNumber is a numeric cell. The pipeline produces these for
	// aggregated and derived fields.
	KindNumber
)

// Cell is a single spreadsheet value: empty, string, or number.
type Cell struct {
	Kind Kind
	Str  string
	Num  float64
}

// Empty returns the empty cell.
func Empty() Cell { return Cell{} }

// String returns a text cell.
func String(s string) Cell { return Cell{Kind: KindString, Str: s} }

// Number returns a numeric cell.
func Number(f float64) Cell { return Cell{Kind: KindNumber, Num: f} }

// IsEmpty reports whether the cell is absent or an empty string.
// Whitespace-only strings are not empty.
func (c Cell) IsEmpty() bool {
	switch c.Kind {
	case KindEmpty:
		return true
	case KindString:
		return c.Str == ""
	default:
		return false
	}
}

// String renders the cell the way it appears in delimited output.
// Numbers use the shortest representation that round-trips.
func (c Cell) String() string {
	switch c.Kind {
	case KindString:
		return c.Str
	case KindNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// =============================================================================
// GRIDS
// =============================================================================

// Row is an ordered sequence of cells.
type Row []Cell

// Grid is an ordered sequence of rows. It is not necessarily rectangular:
// a row may be shorter than the header, and missing cells read as empty.
type Grid []Row

// At returns the cell at column i, or the empty cell when the row is short.
func (r Row) At(i int) Cell {
	if i < 0 || i >= len(r) {
		return Empty()
	}
	return r[i]
}

// Strings renders every cell of the row.
func (r Row) Strings() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.String()
	}
	return out
}

// RowFromStrings builds a row of text cells. Empty strings become empty cells.
func RowFromStrings(values []string) Row {
	row := make(Row, len(values))
	for i, v := range values {
		if v == "" {
			row[i] = Empty()
			continue
		}
		row[i] = String(v)
	}
	return row
}

// GridFromStrings builds a grid of text cells.
func GridFromStrings(rows [][]string) Grid {
	g := make(Grid, len(rows))
	for i, r := range rows {
		g[i] = RowFromStrings(r)
	}
	return g
}

// Strings renders the whole grid.
func (g Grid) Strings() [][]string {
	out := make([][]string, len(g))
	for i, r := range g {
		out[i] = r.Strings()
	}
	return out
}

// =============================================================================
// COERCION HELPERS
// =============================================================================

// NormalizeName lowercases and trims a header label or field name.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// LooseKey is the comparison form of a cell for join and group keys:
// the stringified value, trimmed.
func LooseKey(c Cell) string {
	return strings.TrimSpace(c.String())
}

// LooseEquals compares two cells by their trimmed string forms, so "5",
// " 5 " and the number 5 are all equal.
func LooseEquals(a, b Cell) bool {
	return LooseKey(a) == LooseKey(b)
}

// ParseNumber reads the leading decimal number of a cell. It never fails:
// anything without a numeric prefix is 0. "12abc" is 12, "1,000" is 1.
// The result is always finite.
func ParseNumber(c Cell) float64 {
	switch c.Kind {
	case KindNumber:
		if math.IsNaN(c.Num) || math.IsInf(c.Num, 0) {
			return 0
		}
		return c.Num
	case KindString:
		return parseLeadingFloat(c.Str)
	default:
		return 0
	}
}

// parseLeadingFloat scans the longest prefix of s that forms a decimal
// number with optional sign, fraction and exponent.
func parseLeadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	n := len(s)

	if end < n && (s[end] == '+' || s[end] == '-') {
		end++
	}

	digits := 0
	for end < n && isDigit(s[end]) {
		end++
		digits++
	}
	if end < n && s[end] == '.' {
		end++
		for end < n && isDigit(s[end]) {
			end++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}

	// Exponent only counts when at least one digit follows it.
	if end < n && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if exp < n && (s[exp] == '+' || s[exp] == '-') {
			exp++
		}
		start := exp
		for exp < n && isDigit(s[exp]) {
			exp++
		}
		if exp > start {
			end = exp
		}
	}

	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return f
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
