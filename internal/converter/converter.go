// =============================================================================
// MergeFiles - Converter Module
// =============================================================================
//
// This module contains the correlation engine. It pairs the item listing of
// an order with the universal id listing of the same order, joins their
// rows and shapes the result for export.
//
// MERGE PIPELINE:
//   1. Decode every input file, in order, to a grid
//   2. Per grid, locate the alt-id table (and the order identifier) and the
//      item table
//   3. Per item table, read the join seed ("inmar order #" of its first row)
//   4. Pair it with every alt-id table whose order identifier matches
//   5. Per pair, aggregate both tables, join item -> alt-id, derive fields
//   6. Shape the merged records with the canonical header and encode as CSV
//
// CONCURRENCY:
//   Files are decoded sequentially so output order follows input order.
//   The context is checked between files; a cancelled run returns no
//   partial output.
//
// =============================================================================

package converter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/elsoutlet/MergeFiles/internal/config"
	"github.com/elsoutlet/MergeFiles/internal/csvparser"
	"github.com/elsoutlet/MergeFiles/internal/sheet"
	"github.com/elsoutlet/MergeFiles/internal/tablewriter"
	"github.com/elsoutlet/MergeFiles/internal/types"
	"github.com/elsoutlet/MergeFiles/internal/validation"
)

// Table names used in diagnostics.
const (
	itemTableName  = "item"
	altIDTableName = "alt-id"
)

// minMergeFiles is the smallest file set a join can be built from.
const minMergeFiles = 2

// Columns each table is expected to carry.
var (
	itemRequiredColumns  = []string{types.FieldItem, types.FieldInmarOrder, types.FieldQuantity, types.FieldLastKnownPrice}
	altIDRequiredColumns = []string{types.FieldAltUniversalID, types.FieldUniversalID}
	numericColumns       = []string{types.FieldQuantity, types.FieldLastKnownPrice, types.FieldLiquidationPct}
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result is one merged (item file, alt-id file) pair.
type Result struct {
	// Text is the merged table as comma-delimited text.
	Text string

	// Label is the order identifier shared by the pair.
	Label string

	// Grid is the merged table before encoding, header first.
	Grid types.Grid

	// ItemFile and AltIDFile name the paired inputs.
	ItemFile  string
	AltIDFile string

	// Records is the number of merged data rows.
	Records int
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configure detection and output shaping.
type Options struct {
	ItemMarker    string
	AltIDMarker   string
	OrderIDLabel  string
	OrderIDOffset int
	MaxHeaderRows int

	// Columns is the output header. Nil means tablewriter.ExpectedHeader().
	Columns []string

	CSV    config.CSVSettings
	BOM    bool
	Dedupe bool
}

// OptionsFromConfig maps the application configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ItemMarker:    cfg.Detection.ItemMarker,
		AltIDMarker:   cfg.Detection.AltIDMarker,
		OrderIDLabel:  cfg.Detection.OrderIDLabel,
		OrderIDOffset: cfg.Detection.OrderIDOffset,
		MaxHeaderRows: cfg.Detection.MaxHeaderRows,
		Columns:       cfg.Output.Columns,
		CSV:           cfg.CSVSettings,
		BOM:           cfg.Output.BOM,
		Dedupe:        cfg.Output.Dedupe,
	}
}

// DefaultOptions returns Options for the standard export layout.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs merges over sets of input files.
type Converter struct {
	options Options
	logger  *zap.Logger
}

// New creates a Converter. A nil logger discards output.
func New(options Options, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{options: options, logger: logger}
}

// analyzedSheet is what one input file contributes to the correlation.
type analyzedSheet struct {
	name string

	items    types.Table
	hasItems bool
	itemRow  int

	altIDs    types.Table
	hasAltIDs bool
	altIDRow  int

	orderID    types.Cell
	hasOrderID bool

	findings []*validation.ValidationError
}

// =============================================================================
// MAIN PROCESSING FUNCTIONS
// =============================================================================

// Merge correlates item tables with alt-id tables across files and returns
// one result per matched pair that produced at least one merged row.
//
// PARAMETERS:
//   - ctx: Checked between file decodes.
//   - files: The inputs, in order. Fewer than two files yield no results.
//
// RETURNS:
//   - The merged pairs in item-file order, then alt-id-file order. An empty
//     slice means there was nothing to merge.
//   - An error if any file fails to decode or the context is cancelled.
func (c *Converter) Merge(ctx context.Context, files []Source) ([]Result, error) {
	if len(files) < minMergeFiles {
		c.logger.Info("nothing to merge", zap.Int("files", len(files)))
		return nil, nil
	}

	// Step 1-2: decode and analyze every file.
	sheets, err := c.analyzeAll(ctx, files)
	if err != nil {
		return nil, err
	}

	// Step 3-6: pair and join.
	var results []Result
	for _, itemSheet := range sheets {
		if !itemSheet.hasItems || len(itemSheet.items) == 0 {
			continue
		}

		seed, ok := itemSheet.items[0].Lookup(types.FieldInmarOrder)
		if !ok || seed.IsEmpty() {
			c.logger.Debug("item table has no order number, skipping",
				zap.String("file", itemSheet.name))
			continue
		}

		for _, altSheet := range sheets {
			if !altSheet.hasAltIDs || !altSheet.hasOrderID {
				continue
			}
			if !types.LooseEquals(altSheet.orderID, seed) {
				continue
			}

			merged := Join(itemSheet.items, altSheet.altIDs)
			if len(merged) == 0 {
				c.logger.Info("no rows matched",
					zap.String("item_file", itemSheet.name),
					zap.String("alt_id_file", altSheet.name),
					zap.String("order", altSheet.orderID.String()))
				continue
			}

			result, err := c.render(merged)
			if err != nil {
				return nil, fmt.Errorf("failed to render order %s: %w", altSheet.orderID.String(), err)
			}
			result.Label = types.LooseKey(altSheet.orderID)
			result.ItemFile = itemSheet.name
			result.AltIDFile = altSheet.name
			results = append(results, result)

			c.logger.Info("merged order",
				zap.String("order", result.Label),
				zap.String("item_file", itemSheet.name),
				zap.String("alt_id_file", altSheet.name),
				zap.Int("rows", result.Records))
		}
	}

	return results, nil
}

// CombineMergedFiles merges files and concatenates every merged table into
// one grid. When master is given, its header and rows come first.
//
// RETURNS:
//   - The combined grid, or nil when nothing merged and no master was given.
//   - An error if any file (or the master) fails to decode.
func (c *Converter) CombineMergedFiles(ctx context.Context, files []Source, master *Source) (types.Grid, error) {
	results, err := c.Merge(ctx, files)
	if err != nil {
		return nil, err
	}

	var masterGrid types.Grid
	if master != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		masterGrid, err = Decode(*master, c.options.CSV)
		if err != nil {
			return nil, fmt.Errorf("failed to read master file: %w", err)
		}
		if masterGrid == nil {
			masterGrid = types.Grid{}
		}
	}

	entries := make([]types.Grid, len(results))
	for i, r := range results {
		entries[i] = r.Grid
	}

	return tablewriter.Combine(entries, masterGrid, tablewriter.CombineOptions{Dedupe: c.options.Dedupe}), nil
}

// =============================================================================
// JOIN
// =============================================================================

// Join merges an item table with an alt-id table.
//
// JOIN LOGIC:
//  1. Both tables are aggregated: alt-id rows by "alt universal id", item
//     rows by "item", when the tables carry those fields.
//  2. Each item row is matched to the first alt-id row whose
//     "alt universal id" loosely equals its "item". Unmatched item rows are
//     dropped.
//  3. The merged row is the item row overlaid with the alt-id row (alt-id
//     wins collisions). "alt universal id" is then reset to the merged
//     "item" value.
//  4. Derived fields are applied.
//
// The inputs are not modified; every merged record is newly allocated.
func Join(items, altIDs types.Table) types.Table {
	if altIDs.HasField(types.FieldAltUniversalID) {
		altIDs = GroupBy(altIDs, types.FieldAltUniversalID)
	}
	if items.HasField(types.FieldItem) {
		items = GroupBy(items, types.FieldItem)
	}

	var merged types.Table
	for _, item := range items {
		key, ok := item.Get(types.FieldItem)
		if !ok {
			continue
		}

		alt := firstMatch(altIDs, key)
		if alt == nil {
			continue
		}

		rec := item.Clone()
		rec.Overlay(alt)
		if rec.Has(types.FieldAltUniversalID) {
			rec.Set(types.FieldAltUniversalID, rec.Value(types.FieldItem))
		}
		ApplyDerived(rec)

		merged = append(merged, rec)
	}

	return merged
}

// firstMatch returns the first alt-id record keyed by key, or nil.
func firstMatch(altIDs types.Table, key types.Cell) *types.Record {
	for _, alt := range altIDs {
		v, ok := alt.Get(types.FieldAltUniversalID)
		if ok && types.LooseEquals(v, key) {
			return alt
		}
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// analyzeAll decodes every file sequentially and locates its tables.
func (c *Converter) analyzeAll(ctx context.Context, files []Source) ([]*analyzedSheet, error) {
	sheets := make([]*analyzedSheet, 0, len(files))
	for _, src := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		grid, err := Decode(src, c.options.CSV)
		if err != nil {
			return nil, err
		}

		s := c.analyze(src.Name, grid)
		c.report(s)
		sheets = append(sheets, s)
	}
	return sheets, nil
}

// analyze locates both tables and the order identifier of one grid.
func (c *Converter) analyze(name string, grid types.Grid) *analyzedSheet {
	log := c.logger.With(zap.String("file", name))
	s := &analyzedSheet{name: name}

	s.altIDs, s.altIDRow, s.hasAltIDs = sheet.Extract(grid, c.options.AltIDMarker, c.options.MaxHeaderRows, log)
	if s.hasAltIDs {
		s.orderID, s.hasOrderID = sheet.FindOrderID(grid, c.options.OrderIDLabel, c.options.OrderIDOffset)
		s.findings = append(s.findings, validation.CheckColumns(s.altIDs, altIDRequiredColumns, altIDTableName)...)
	}

	s.items, s.itemRow, s.hasItems = sheet.Extract(grid, c.options.ItemMarker, c.options.MaxHeaderRows, log)
	if s.hasItems {
		s.findings = append(s.findings, validation.CheckColumns(s.items, itemRequiredColumns, itemTableName)...)
		s.findings = append(s.findings, validation.CheckNumeric(s.items, numericColumns, itemTableName)...)
	}

	log.Debug("analyzed sheet",
		zap.Bool("item_table", s.hasItems),
		zap.Int("item_rows", len(s.items)),
		zap.Bool("alt_id_table", s.hasAltIDs),
		zap.Int("alt_id_rows", len(s.altIDs)),
		zap.String("order_id", s.orderID.String()))

	return s
}

// report logs the validation findings of a sheet as warnings.
func (c *Converter) report(s *analyzedSheet) {
	for _, e := range s.findings {
		c.logger.Warn("validation",
			zap.String("file", s.name),
			zap.String("table", e.Table),
			zap.String("rule", e.Rule),
			zap.Error(e))
	}
}

// render shapes merged records and encodes them.
func (c *Converter) render(merged types.Table) (Result, error) {
	grid := tablewriter.ObjectsToRows(merged, c.options.Columns)

	text, err := csvparser.EncodeWithOptions(grid, csvparser.EncodeOptions{BOMPrefix: c.options.BOM})
	if err != nil {
		return Result{}, err
	}

	return Result{Text: text, Grid: grid, Records: len(merged)}, nil
}
