// =============================================================================
// MergeFiles - CSV Parser Module
// =============================================================================
//
// This module decodes delimited exports into grids and encodes grids back to
// comma-delimited text. It handles:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - Legacy single-byte encodings (Windows-1252, ISO-8859-1)
//   - A leading UTF-8 byte order mark
//   - Ragged rows (rows shorter or longer than the header)
//
// Header discovery is NOT done here: exports carry preamble rows, so the
// whole file is returned as a grid and the sheet package finds the header.
//
// =============================================================================

package csvparser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/elsoutlet/MergeFiles/internal/config"
	"github.com/elsoutlet/MergeFiles/internal/types"
)

// utf8BOM is stripped from the start of decoded input and optionally written
// at the start of encoded output.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// DECODING
// =============================================================================

// Parse decodes CSV bytes into a grid of text cells.
//
// PARAMETERS:
//   - data: The raw file contents.
//   - settings: Delimiter and encoding settings from the configuration.
//
// RETURNS:
//   - The grid, one row per record. Empty fields become empty cells.
//   - An error if the bytes cannot be decoded as CSV.
func Parse(data []byte, settings config.CSVSettings) (types.Grid, error) {
	var reader io.Reader = bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))

	dec, err := decoderFor(settings.Encoding)
	if err != nil {
		return nil, err
	}
	if dec != nil {
		reader = transform.NewReader(reader, dec.NewDecoder())
	}

	csvReader := csv.NewReader(reader)
	configureReader(csvReader, settings)

	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	return types.GridFromStrings(rows), nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	reader.Comma = delimiterRune(settings.Delimiter)

	// Exports are ragged: preamble rows have a handful of cells, data rows
	// have the full width.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
}

// delimiterRune maps the configured delimiter name to a rune.
func delimiterRune(delimiter string) rune {
	switch delimiter {
	case "\\t", "\t", "tab", "TAB":
		return '\t'
	case "|", "pipe", "PIPE":
		return '|'
	case ";", "semicolon":
		return ';'
	case "":
		return ','
	default:
		return []rune(delimiter)[0]
	}
}

// decoderFor returns the charmap for a legacy encoding, or nil for UTF-8.
func decoderFor(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "UTF-8", "UTF8":
		return nil, nil
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252, nil
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		return charmap.ISO8859_1, nil
	case "ISO-8859-15":
		return charmap.ISO8859_15, nil
	default:
		return nil, fmt.Errorf("unsupported CSV encoding: %s", name)
	}
}

// =============================================================================
// ENCODING
// =============================================================================

// EncodeOptions controls delimited output.
type EncodeOptions struct {
	// BOMPrefix writes a UTF-8 byte order mark so spreadsheet tools detect
	// the encoding.
	BOMPrefix bool
}

// Encode renders a grid as comma-delimited text. Fields containing the
// delimiter, quotes or newlines are quoted.
func Encode(grid types.Grid) (string, error) {
	return EncodeWithOptions(grid, EncodeOptions{})
}

// EncodeWithOptions renders a grid as comma-delimited text.
func EncodeWithOptions(grid types.Grid, options EncodeOptions) (string, error) {
	var buf bytes.Buffer
	if options.BOMPrefix {
		buf.Write(utf8BOM)
	}

	w := csv.NewWriter(&buf)
	for i, row := range grid {
		if err := w.Write(row.Strings()); err != nil {
			return "", fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}

	return buf.String(), nil
}
