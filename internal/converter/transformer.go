// =============================================================================
// MergeFiles - Derived Fields
// =============================================================================
//
// This module computes the fields a merged record gains after the join:
//
//   extended price      = quantity x last known price
//   ext liquidation prc = extended price x liquidation % x 0.01
//   actual upc          = formatUPC(universal id)
//
// Each field is computed only when all of its input keys are present on the
// record; a missing key leaves the derived field unset. Values that do not
// parse as numbers count as 0. Money arithmetic is done in decimal so that
// results such as 0.1 x 3 come out exact.
//
// =============================================================================

package converter

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/elsoutlet/MergeFiles/internal/types"
)

// upcBaseLength is the number of digits before the UPC-A check digit.
const upcBaseLength = 11

// liquidationScale turns a percentage into a fraction.
var liquidationScale = decimal.New(1, -2)

// ApplyDerived sets the derived fields on a merged record in place.
func ApplyDerived(rec *types.Record) {
	var ext decimal.Decimal
	computed := false

	if rec.Has(types.FieldQuantity) && rec.Has(types.FieldLastKnownPrice) {
		qty := numeric(rec.Value(types.FieldQuantity))
		price := numeric(rec.Value(types.FieldLastKnownPrice))
		ext = qty.Mul(price)
		computed = true
		rec.Set(types.FieldExtendedPrice, numberCell(ext))
	}

	if rec.Has(types.FieldExtendedPrice) && rec.Has(types.FieldLiquidationPct) {
		if !computed {
			ext = numeric(rec.Value(types.FieldExtendedPrice))
		}
		pct := numeric(rec.Value(types.FieldLiquidationPct))
		rec.Set(types.FieldExtLiquidationPrc, numberCell(ext.Mul(pct).Mul(liquidationScale)))
	}

	if rec.Has(types.FieldUniversalID) {
		rec.Set(types.FieldActualUPC, types.String(FormatUPC(rec.Value(types.FieldUniversalID))))
	}
}

// numeric reads a cell as a decimal, 0 when it does not parse.
func numeric(c types.Cell) decimal.Decimal {
	return fromFloat(types.ParseNumber(c))
}

// fromFloat converts f to a decimal. NaN and the infinities read as 0.
func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// numberCell stores a decimal as a number cell. Values beyond the float64
// range are clamped to ±math.MaxFloat64.
func numberCell(d decimal.Decimal) types.Cell {
	f := d.InexactFloat64()
	switch {
	case math.IsInf(f, 1):
		f = math.MaxFloat64
	case math.IsInf(f, -1):
		f = -math.MaxFloat64
	case math.IsNaN(f):
		f = 0
	}
	return types.Number(f)
}

// FormatUPC renders a universal id as a 12-digit UPC-A code.
//
// FORMATTING:
//  1. Stringify and trim; an empty value yields "".
//  2. Keep the last 11 characters and left-pad with '0' to 11.
//  3. Append the check digit: digits at even (0-based) positions count
//     three times, odd positions once; the check digit is
//     (10 - sum mod 10) mod 10. Non-digit characters count as 0.
//
// "03600029145" becomes "036000291452"; "123" becomes "000000001236".
func FormatUPC(v types.Cell) string {
	s := strings.TrimSpace(v.String())
	if s == "" {
		return ""
	}

	r := []rune(s)
	if len(r) > upcBaseLength {
		r = r[len(r)-upcBaseLength:]
	}
	base := padLeft(string(r), upcBaseLength, '0')

	return base + string(rune('0'+upcCheckDigit(base)))
}

// upcCheckDigit computes the UPC-A check digit of an 11-character base.
func upcCheckDigit(base string) int {
	sum := 0
	for i, c := range []rune(base) {
		d := 0
		if c >= '0' && c <= '9' {
			d = int(c - '0')
		}
		if i%2 == 0 {
			d *= 3
		}
		sum += d
	}
	return (10 - sum%10) % 10
}

// padLeft pads a string with a character on the left to reach the target length.
func padLeft(s string, length int, padChar rune) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}
