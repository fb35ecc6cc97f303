// =============================================================================
// MergeFiles - Configuration Module
// =============================================================================
//
// This module is responsible for loading and saving the application
// configuration. Values are layered by viper:
//
//   1. Built-in defaults (see setDefaults)
//   2. The YAML config file (mergefiles.yaml, or --config)
//   3. Environment variables with the MERGEFILES_ prefix
//      (MERGEFILES_OUTPUT_DIR, MERGEFILES_DETECTION_MAX_HEADER_ROWS, ...)
//
// A missing config file is not an error: the defaults describe the standard
// order-portal export layout.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/elsoutlet/MergeFiles/internal/tablewriter"
)

// DefaultConfigFile is the file name looked up in the working directory.
const DefaultConfigFile = "mergefiles.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MERGEFILES"

// ErrInvalidConfig is returned when a configuration value is unusable.
var ErrInvalidConfig = errors.New("invalid configuration")

// Output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatBoth = "both"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the global application configuration.
type Config struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for exports when no files are given on the
	// command line.
	// Default: "./input"
	InputDir string `mapstructure:"input_dir" yaml:"input_dir"`

	// OutputDir receives merged CSV files, workbooks and summaries.
	// Default: "./output"
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`

	// ArchiveDir receives input files after a successful run when
	// archiving is enabled.
	// Default: "./input_archive"
	ArchiveDir string `mapstructure:"archive_dir" yaml:"archive_dir"`

	// ArchiveInputs moves inputs to ArchiveDir after a successful merge.
	// Default: false
	ArchiveInputs bool `mapstructure:"archive_inputs" yaml:"archive_inputs"`

	// ArchiveDateSubdirs archives into YYYY/MM/DD folders under ArchiveDir.
	// Default: false
	ArchiveDateSubdirs bool `mapstructure:"archive_date_subdirs" yaml:"archive_date_subdirs"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// LogFile adds a file sink next to stderr when set.
	// Default: "" (stderr only)
	LogFile string `mapstructure:"log_file" yaml:"log_file"`

	// =========================================================================
	// SECTIONS
	// =========================================================================

	Detection   DetectionSettings `mapstructure:"detection" yaml:"detection"`
	Output      OutputSettings    `mapstructure:"output" yaml:"output"`
	CSVSettings CSVSettings       `mapstructure:"csv_settings" yaml:"csv_settings"`
}

// DetectionSettings locate the two tables and the order identifier inside
// an export sheet.
type DetectionSettings struct {
	// ItemMarker is the column label identifying the item table header.
	// Default: "Item"
	ItemMarker string `mapstructure:"item_marker" yaml:"item_marker"`

	// AltIDMarker is the column label identifying the alt-id table header.
	// Default: "Alt Universal Id"
	AltIDMarker string `mapstructure:"alt_id_marker" yaml:"alt_id_marker"`

	// OrderIDLabel is the literal first cell of the order identifier row.
	// Default: "Order ID:"
	OrderIDLabel string `mapstructure:"order_id_label" yaml:"order_id_label"`

	// OrderIDOffset is the column of the identifier within that row.
	// Default: 2
	OrderIDOffset int `mapstructure:"order_id_offset" yaml:"order_id_offset"`

	// MaxHeaderRows is how many leading rows are scanned for a header.
	// Default: 20
	MaxHeaderRows int `mapstructure:"max_header_rows" yaml:"max_header_rows"`
}

// OutputSettings shape the files written by merge and combine.
type OutputSettings struct {
	// Format selects what merge writes per order: "csv", "xlsx" or "both".
	// Default: "csv"
	Format string `mapstructure:"format" yaml:"format"`

	// FilenameFormat names each merged output, without extension.
	// Placeholders:
	//   {order}     - The order identifier of the merged pair
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - Current date (YYYYMMDD)
	// Default: "merged_{order}"
	FilenameFormat string `mapstructure:"filename_format" yaml:"filename_format"`

	// CombinedFilename names the workbook written by combine.
	// Default: "combined_{timestamp}.xlsx"
	CombinedFilename string `mapstructure:"combined_filename" yaml:"combined_filename"`

	// SheetName is the worksheet name used in every written workbook.
	// Default: "Merged"
	SheetName string `mapstructure:"sheet_name" yaml:"sheet_name"`

	// Columns is the canonical output header. Every emitted row has exactly
	// this many cells.
	// Default: the 25 standard manifest columns
	Columns []string `mapstructure:"columns" yaml:"columns"`

	// BOM prefixes CSV output with a UTF-8 byte order mark.
	// Default: false
	BOM bool `mapstructure:"bom" yaml:"bom"`

	// Dedupe drops exact duplicate data rows when combining.
	// Default: false
	Dedupe bool `mapstructure:"dedupe" yaml:"dedupe"`
}

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields in the CSV.
	// Common values: "," (comma), "|" (pipe), "\t" (tab)
	// Default: ","
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`

	// Encoding is the character encoding of the CSV file.
	// Common values: "UTF-8", "ISO-8859-1", "Windows-1252"
	// Default: "UTF-8"
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		InputDir:   "./input",
		OutputDir:  "./output",
		ArchiveDir: "./input_archive",
		LogLevel:   "info",
		Detection: DetectionSettings{
			ItemMarker:    "Item",
			AltIDMarker:   "Alt Universal Id",
			OrderIDLabel:  "Order ID:",
			OrderIDOffset: 2,
			MaxHeaderRows: 20,
		},
		Output: OutputSettings{
			Format:           FormatCSV,
			FilenameFormat:   "merged_{order}",
			CombinedFilename: "combined_{timestamp}.xlsx",
			SheetName:        "Merged",
			Columns:          tablewriter.ExpectedHeader(),
		},
		CSVSettings: CSVSettings{
			Delimiter: ",",
			Encoding:  "UTF-8",
		},
	}
}

// setDefaults registers every default with viper so environment overrides
// resolve for keys that are absent from the file.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("input_dir", d.InputDir)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("archive_dir", d.ArchiveDir)
	v.SetDefault("archive_inputs", d.ArchiveInputs)
	v.SetDefault("archive_date_subdirs", d.ArchiveDateSubdirs)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", d.LogFile)

	v.SetDefault("detection.item_marker", d.Detection.ItemMarker)
	v.SetDefault("detection.alt_id_marker", d.Detection.AltIDMarker)
	v.SetDefault("detection.order_id_label", d.Detection.OrderIDLabel)
	v.SetDefault("detection.order_id_offset", d.Detection.OrderIDOffset)
	v.SetDefault("detection.max_header_rows", d.Detection.MaxHeaderRows)

	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.filename_format", d.Output.FilenameFormat)
	v.SetDefault("output.combined_filename", d.Output.CombinedFilename)
	v.SetDefault("output.sheet_name", d.Output.SheetName)
	v.SetDefault("output.columns", d.Output.Columns)
	v.SetDefault("output.bom", d.Output.BOM)
	v.SetDefault("output.dedupe", d.Output.Dedupe)

	v.SetDefault("csv_settings.delimiter", d.CSVSettings.Delimiter)
	v.SetDefault("csv_settings.encoding", d.CSVSettings.Encoding)
}

// =============================================================================
// LOADING AND SAVING
// =============================================================================

// Load loads configuration from defaults, the config file and the
// environment, in increasing precedence.
//
// PARAMETERS:
//   - cfgFile: Path to the config file. Empty means DefaultConfigFile in the
//     working directory. A missing file is not an error.
//
// RETURNS:
//   - The resolved configuration.
//   - An error if the file exists but cannot be parsed, or a value is
//     unusable (wrapping ErrInvalidConfig).
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if cfgFile == "" {
		cfgFile = DefaultConfigFile
	}
	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if !isNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// isNotExist reports whether viper failed because the file is absent.
func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	return errors.Is(err, os.ErrNotExist)
}

// Validate checks the values the pipeline cannot run without.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Output.Format) {
	case FormatCSV, FormatXLSX, FormatBoth:
	default:
		return fmt.Errorf("%w: output.format must be csv, xlsx or both, got %q", ErrInvalidConfig, c.Output.Format)
	}
	if strings.TrimSpace(c.Detection.ItemMarker) == "" {
		return fmt.Errorf("%w: detection.item_marker is empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Detection.AltIDMarker) == "" {
		return fmt.Errorf("%w: detection.alt_id_marker is empty", ErrInvalidConfig)
	}
	if c.Detection.OrderIDOffset < 0 {
		return fmt.Errorf("%w: detection.order_id_offset is negative", ErrInvalidConfig)
	}
	if len(c.Output.Columns) == 0 {
		return fmt.Errorf("%w: output.columns is empty", ErrInvalidConfig)
	}
	return nil
}

// EnsureDirs creates the output directory, and the archive directory when
// archiving is enabled.
func (c *Config) EnsureDirs() error {
	dirs := []string{c.OutputDir}
	if c.ArchiveInputs {
		dirs = append(dirs, c.ArchiveDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Save writes the configuration as YAML, creating the parent directory.
func Save(c *Config, path string) error {
	if path == "" {
		path = DefaultConfigFile
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
