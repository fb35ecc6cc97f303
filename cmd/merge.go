// =============================================================================
// MergeFiles - Merge Command
// =============================================================================
//
// This file defines the 'merge' command, the main command of the tool. It
// pairs item listings with universal id listings and writes one merged
// manifest per order.
//
// COMMAND USAGE:
//   mergefiles merge [files...] [flags]
//
// FLAGS:
//   --input-dir   : Directory scanned when no files are given
//   --output-dir  : Directory for merged outputs
//   --format      : csv, xlsx or both
//   --dry-run     : Report what would be written without writing
//   --archive     : Move inputs to the archive directory afterwards
//   --summary     : Write a run summary to the output directory
//
// PROCESSING PIPELINE:
//   1. Resolve input files (arguments, or discovery in the input directory)
//   2. Read every file, in order
//   3. Merge (decode, detect, correlate, join, derive)
//   4. Write each merged order as CSV and/or workbook
//   5. Archive inputs and write the summary
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/elsoutlet/MergeFiles/internal/config"
	"github.com/elsoutlet/MergeFiles/internal/converter"
	"github.com/elsoutlet/MergeFiles/internal/xlsxparser"
	"github.com/elsoutlet/MergeFiles/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// inputDir overrides the configured input directory.
var inputDir string

// outputDir overrides the configured output directory.
var outputDir string

// outputFormat overrides the configured output format.
var outputFormat string

// dryRun reports the outputs without writing them.
var dryRun bool

// archiveInputs moves inputs to the archive directory after a successful run.
var archiveInputs bool

// writeSummary writes a run summary file.
var writeSummary bool

// =============================================================================
// MERGE COMMAND DEFINITION
// =============================================================================

// mergeCmd represents the 'merge' command.
var mergeCmd = &cobra.Command{
	Use:   "merge [files...]",
	Short: "Merge item listings with universal id listings by order number",
	Long: `The merge command reads the given exports (or every .csv, .xlsx and .xls
file in the input directory), finds the item table and the alternate universal
id table in each, and pairs them by order number.

For each matched pair one manifest is written to the output directory, named
from output.filename_format ({order} is the order number). Every manifest has
the canonical column layout.

At least two files are needed. When nothing matches, nothing is written and
the command still succeeds. A file that cannot be read fails the whole run.`,

	RunE: runMerge,
}

// init registers the merge command with the root command and sets up flags.
func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().StringVar(&inputDir, "input-dir", "", "Directory scanned when no files are given (default from config)")
	mergeCmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for merged outputs (default from config)")
	mergeCmd.Flags().StringVar(&outputFormat, "format", "", "Output format: csv, xlsx or both (default from config)")
	mergeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be written without writing")
	mergeCmd.Flags().BoolVar(&archiveInputs, "archive", false, "Move inputs to the archive directory after a successful run")
	mergeCmd.Flags().BoolVar(&writeSummary, "summary", false, "Write a run summary to the output directory")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runMerge orchestrates the merge pipeline.
func runMerge(cmd *cobra.Command, args []string) error {
	startTime := time.Now()
	out := cmd.OutOrStdout()
	log := currentLogger()

	cfg, err := effectiveConfig()
	if err != nil {
		return err
	}
	if archiveInputs {
		cfg.ArchiveInputs = true
	}
	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.ArchiveDir)
	fm.UseTimestampSubdirs = cfg.ArchiveDateSubdirs

	// =========================================================================
	// STEP 1: RESOLVE INPUT FILES
	// =========================================================================

	files, err := resolveInputs(fm, args, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Found %d file(s)\n", len(files))

	// =========================================================================
	// STEP 2-3: READ AND MERGE
	// =========================================================================

	sources, err := converter.ReadSources(files)
	if err != nil {
		return err
	}

	conv := converter.New(converter.OptionsFromConfig(cfg), log)
	results, err := conv.Merge(commandContext(cmd), sources)
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}

	summary := utils.RunSummary{StartTime: startTime, InputFiles: files}

	// =========================================================================
	// STEP 4: WRITE OUTPUTS
	// =========================================================================

	if len(results) == 0 {
		fmt.Fprintln(out, "Nothing to merge.")
	}

	if !dryRun && len(results) > 0 {
		if err := cfg.EnsureDirs(); err != nil {
			return err
		}
	}

	names := newNameSet()
	for _, r := range results {
		info := utils.MergedOrderInfo{
			OrderID:   r.Label,
			ItemFile:  r.ItemFile,
			AltIDFile: r.AltIDFile,
			Rows:      r.Records,
		}

		base := names.unique(utils.GenerateOutputFileName(trimExt(cfg.Output.FilenameFormat), "", map[string]string{"order": r.Label}))
		written, err := writeResult(fm, cfg, r, base)
		if err != nil {
			return err
		}
		info.OutputFiles = written

		for _, w := range written {
			fmt.Fprintf(out, "  ✓ order %s (%d rows) -> %s\n", r.Label, r.Records, w)
		}
		summary.MergedOrders = append(summary.MergedOrders, info)
	}

	// =========================================================================
	// STEP 5: ARCHIVE AND SUMMARIZE
	// =========================================================================

	if cfg.ArchiveInputs && !dryRun && len(results) > 0 {
		for _, f := range files {
			archived, err := fm.ArchiveInputFile(f)
			if err != nil {
				return fmt.Errorf("failed to archive %s: %w", f, err)
			}
			log.Debug("archived input", zap.String("file", f), zap.String("archive", archived))
			summary.Archived = append(summary.Archived, archived)
		}
	}

	summary.EndTime = time.Now()
	printSummary(out, summary)

	if writeSummary && !dryRun {
		path, err := utils.WriteSummaryLog(summary, cfg.OutputDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Summary written to %s\n", path)
	}

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// effectiveConfig applies command-line overrides to the loaded configuration.
func effectiveConfig() (*config.Config, error) {
	c := *currentConfig()
	if inputDir != "" {
		c.InputDir = inputDir
	}
	if outputDir != "" {
		c.OutputDir = outputDir
	}
	if outputFormat != "" {
		c.Output.Format = strings.ToLower(outputFormat)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// resolveInputs returns the explicit file arguments, or every supported
// file in the input directory. exclude is left out of discovery. An explicit
// file with an unsupported extension is rejected before anything is read.
func resolveInputs(fm *utils.FileManager, args []string, exclude string) ([]string, error) {
	if len(args) > 0 {
		for _, a := range args {
			if !converter.IsSupported(a) {
				return nil, fmt.Errorf("%s: expected one of %s: %w",
					a, strings.Join(converter.SupportedExtensions, ", "), converter.ErrUnsupportedFormat)
			}
		}
		return args, nil
	}

	files, err := fm.DiscoverInputFiles(converter.SupportedExtensions)
	if err != nil {
		return nil, err
	}
	if exclude == "" {
		return files, nil
	}

	kept := files[:0]
	for _, f := range files {
		if filepath.Clean(f) == filepath.Clean(exclude) {
			continue
		}
		kept = append(kept, f)
	}
	return kept, nil
}

// writeResult writes one merged order in the configured formats and returns
// the written paths. In dry-run mode the paths are returned unwritten.
func writeResult(fm *utils.FileManager, cfg *config.Config, r converter.Result, base string) ([]string, error) {
	var written []string
	format := strings.ToLower(cfg.Output.Format)

	if format == config.FormatCSV || format == config.FormatBoth {
		name := base + ".csv"
		if dryRun {
			written = append(written, filepath.Join(fm.OutputDir, name))
		} else {
			path, err := fm.WriteOutput(name, []byte(r.Text))
			if err != nil {
				return nil, err
			}
			written = append(written, path)
		}
	}

	if format == config.FormatXLSX || format == config.FormatBoth {
		name := base + ".xlsx"
		if dryRun {
			written = append(written, filepath.Join(fm.OutputDir, name))
		} else {
			data, err := xlsxparser.Write(r.Grid, cfg.Output.SheetName)
			if err != nil {
				return nil, fmt.Errorf("failed to build workbook for order %s: %w", r.Label, err)
			}
			path, err := fm.WriteOutput(name, data)
			if err != nil {
				return nil, err
			}
			written = append(written, path)
		}
	}

	return written, nil
}

// trimExt drops a .csv or .xlsx extension from a file name format; the
// extension is chosen per output format.
func trimExt(format string) string {
	lower := strings.ToLower(format)
	for _, ext := range []string{".csv", ".xlsx"} {
		if strings.HasSuffix(lower, ext) {
			return format[:len(format)-len(ext)]
		}
	}
	return format
}

// nameSet hands out unique base names within one run, so several alt-id
// files matching the same order do not overwrite each other.
type nameSet map[string]bool

func newNameSet() nameSet { return make(nameSet) }

// unique returns base, or base_N with the smallest N >= 2 not handed out
// yet, and reserves the result.
func (s nameSet) unique(base string) string {
	name := base
	for n := 2; s[name]; n++ {
		name = fmt.Sprintf("%s_%d", base, n)
	}
	s[name] = true
	return name
}

// printSummary prints the run statistics.
func printSummary(out io.Writer, s utils.RunSummary) {
	fmt.Fprintln(out, "\n=== Merge Complete ===")
	fmt.Fprintf(out, "Files read:      %d\n", len(s.InputFiles))
	fmt.Fprintf(out, "Orders merged:   %d\n", len(s.MergedOrders))
	fmt.Fprintf(out, "Rows written:    %d\n", s.TotalRows())
	if len(s.Archived) > 0 {
		fmt.Fprintf(out, "Files archived:  %d\n", len(s.Archived))
	}
	fmt.Fprintf(out, "Time elapsed:    %s\n", s.EndTime.Sub(s.StartTime))
}
