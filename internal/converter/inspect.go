package converter

import (
	"context"

	"github.com/elsoutlet/MergeFiles/internal/types"
	"github.com/elsoutlet/MergeFiles/internal/validation"
)

// SheetReport describes what detection found in one input file.
type SheetReport struct {
	File string

	// ItemHeaderRow and AltIDHeaderRow are 0-based row indexes, or -1 when
	// the marker was not found within the scanned prefix.
	ItemHeaderRow  int
	AltIDHeaderRow int

	ItemRecords  int
	AltIDRecords int

	// OrderID is set only for files with an alt-id table.
	OrderID    string
	HasOrderID bool

	// InmarOrder is the join seed read from the first item record.
	InmarOrder string

	Findings []*validation.ValidationError
}

// Inspect decodes every file and reports detected tables without merging.
// Unlike Merge it accepts a single file.
func (c *Converter) Inspect(ctx context.Context, files []Source) ([]SheetReport, error) {
	sheets, err := c.analyzeAll(ctx, files)
	if err != nil {
		return nil, err
	}

	reports := make([]SheetReport, len(sheets))
	for i, s := range sheets {
		r := SheetReport{
			File:           s.name,
			ItemHeaderRow:  s.itemRow,
			AltIDHeaderRow: s.altIDRow,
			ItemRecords:    len(s.items),
			AltIDRecords:   len(s.altIDs),
			HasOrderID:     s.hasOrderID,
			Findings:       s.findings,
		}
		if s.hasOrderID {
			r.OrderID = s.orderID.String()
		}
		if len(s.items) > 0 {
			if v, ok := s.items[0].Lookup(types.FieldInmarOrder); ok {
				r.InmarOrder = v.String()
			}
		}
		reports[i] = r
	}
	return reports, nil
}
