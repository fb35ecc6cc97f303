package converter

import (
	"github.com/shopspring/decimal"

	"github.com/elsoutlet/MergeFiles/internal/types"
)

// GroupBy partitions records by the value of key and returns one record per
// group, in order of first occurrence.
//
// GROUPING LOGIC:
//   - key is normalized before lookup; values are compared by LooseKey, so
//     "5", " 5 " and the number 5 fall into one group.
//   - Each output record is a copy of the first record of its group.
//   - If that record has a "quantity" field, it is replaced by the sum of
//     ParseNumber(quantity) over the group. Unparsable values add 0; a sum
//     beyond the float64 range is clamped.
//   - Every other field keeps the first record's value.
//
// The input records are not modified.
func GroupBy(records types.Table, key string) types.Table {
	key = types.NormalizeName(key)

	groups := make(map[string][]*types.Record)
	groupOrder := []string{} // Maintain order of first occurrence

	for _, rec := range records {
		k := types.LooseKey(rec.Value(key))
		if _, exists := groups[k]; !exists {
			groupOrder = append(groupOrder, k)
		}
		groups[k] = append(groups[k], rec)
	}

	out := make(types.Table, len(groupOrder))
	for i, k := range groupOrder {
		rows := groups[k]
		first := rows[0].Clone()

		if first.Has(types.FieldQuantity) {
			sum := decimal.Zero
			for _, r := range rows {
				sum = sum.Add(numeric(r.Value(types.FieldQuantity)))
			}
			first.Set(types.FieldQuantity, numberCell(sum))
		}

		out[i] = first
	}

	return out
}
