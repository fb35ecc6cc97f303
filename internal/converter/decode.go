package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/elsoutlet/MergeFiles/internal/config"
	"github.com/elsoutlet/MergeFiles/internal/csvparser"
	"github.com/elsoutlet/MergeFiles/internal/types"
	"github.com/elsoutlet/MergeFiles/internal/xlsxparser"
)

// ErrUnsupportedFormat is returned for a file whose extension has no decoder.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// SupportedExtensions lists the extensions Decode accepts, lowercase.
var SupportedExtensions = []string{".csv", ".xlsx", ".xls"}

// Source is one input file: a name used for format detection and
// diagnostics, and its contents.
type Source struct {
	Name string
	Data []byte
}

// ReadSource loads a file from disk.
func ReadSource(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Source{Name: path, Data: data}, nil
}

// ReadSources loads every path, in order.
func ReadSources(paths []string) ([]Source, error) {
	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		src, err := ReadSource(p)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// IsSupported reports whether a file name has a decodable extension.
func IsSupported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Decode reads the first sheet of a source into a grid, choosing the
// decoder by file extension.
func Decode(src Source, settings config.CSVSettings) (types.Grid, error) {
	var (
		grid types.Grid
		err  error
	)

	switch strings.ToLower(filepath.Ext(src.Name)) {
	case ".csv":
		grid, err = csvparser.Parse(src.Data, settings)
	case ".xlsx":
		grid, err = xlsxparser.Parse(src.Data)
	case ".xls":
		grid, err = xlsxparser.ParseXLS(src.Data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, src.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", src.Name, err)
	}

	return grid, nil
}
