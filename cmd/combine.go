// =============================================================================
// MergeFiles - Combine Command
// =============================================================================
//
// This file defines the 'combine' command. It runs the same merge as
// 'merge' but writes every merged order into one workbook, optionally
// below the rows of an existing master sheet.
//
// COMMAND USAGE:
//   mergefiles combine [files...] [flags]
//
// FLAGS:
//   --master      : Workbook or CSV whose rows come first
//   --dedupe      : Drop rows identical to an earlier row
//   --output      : Output file name (default output.combined_filename)
//   --input-dir   : Directory scanned when no files are given
//   --output-dir  : Directory for the combined workbook
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/elsoutlet/MergeFiles/internal/converter"
	"github.com/elsoutlet/MergeFiles/internal/xlsxparser"
	"github.com/elsoutlet/MergeFiles/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// masterFile is read first and its rows kept on top.
var masterFile string

// dedupe drops repeated rows from the combined sheet.
var dedupe bool

// combinedName overrides output.combined_filename.
var combinedName string

// =============================================================================
// COMBINE COMMAND DEFINITION
// =============================================================================

// combineCmd represents the 'combine' command.
var combineCmd = &cobra.Command{
	Use:   "combine [files...]",
	Short: "Merge inputs and export every merged order as one workbook",
	Long: `The combine command merges the inputs exactly like 'merge', then stacks all
merged orders into a single worksheet.

With --master, the master file's header and rows come first and the merged
rows are appended below them. The master file is never treated as an input.

When nothing merges and no master is given, nothing is written.`,

	RunE: runCombine,
}

// init registers the combine command with the root command and sets up flags.
func init() {
	rootCmd.AddCommand(combineCmd)

	combineCmd.Flags().StringVar(&masterFile, "master", "", "Workbook or CSV whose rows come first")
	combineCmd.Flags().BoolVar(&dedupe, "dedupe", false, "Drop rows identical to an earlier row")
	combineCmd.Flags().StringVar(&combinedName, "output", "", "Output file name (default from config)")
	combineCmd.Flags().StringVar(&inputDir, "input-dir", "", "Directory scanned when no files are given (default from config)")
	combineCmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for the combined workbook (default from config)")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runCombine merges the inputs and writes the combined workbook.
func runCombine(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	log := currentLogger()

	cfg, err := effectiveConfig()
	if err != nil {
		return err
	}
	if dedupe {
		cfg.Output.Dedupe = true
	}
	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.ArchiveDir)

	files, err := resolveInputs(fm, args, masterFile)
	if err != nil {
		return err
	}
	sources, err := converter.ReadSources(files)
	if err != nil {
		return err
	}

	var master *converter.Source
	if masterFile != "" {
		m, err := converter.ReadSource(masterFile)
		if err != nil {
			return err
		}
		master = &m
	}

	conv := converter.New(converter.OptionsFromConfig(cfg), log)
	grid, err := conv.CombineMergedFiles(commandContext(cmd), sources, master)
	if err != nil {
		return fmt.Errorf("combine failed: %w", err)
	}
	if grid == nil {
		fmt.Fprintln(out, "Nothing to export.")
		return nil
	}

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	data, err := xlsxparser.Write(grid, cfg.Output.SheetName)
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}

	format := cfg.Output.CombinedFilename
	if combinedName != "" {
		format = combinedName
	}
	path, err := fm.WriteOutput(utils.GenerateOutputFileName(format, ".xlsx", nil), data)
	if err != nil {
		return err
	}

	log.Info("combined workbook written", zap.String("path", path), zap.Int("rows", len(grid)))
	fmt.Fprintf(out, "✓ %d rows -> %s\n", len(grid), path)
	return nil
}
