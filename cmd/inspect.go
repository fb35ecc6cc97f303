// =============================================================================
// MergeFiles - Inspect Command
// =============================================================================
//
// This file defines the 'inspect' command, which reports what header
// detection finds in each input without merging anything. It is the first
// thing to run when a file unexpectedly produces no output.
//
// COMMAND USAGE:
//   mergefiles inspect [files...]
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/elsoutlet/MergeFiles/internal/converter"
	"github.com/elsoutlet/MergeFiles/internal/validation"
	"github.com/elsoutlet/MergeFiles/pkg/utils"
)

// inspectCmd represents the 'inspect' command.
var inspectCmd = &cobra.Command{
	Use:   "inspect [files...]",
	Short: "Show the tables and order identifiers detected in each file",
	Long: `The inspect command decodes each file and prints the header rows found for
the item table and the alternate universal id table, the order identifier,
the order number of the first item row, and any validation findings.

Without arguments every supported file in the input directory is inspected.`,

	RunE: runInspect,
}

// init registers the inspect command with the root command.
func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inputDir, "input-dir", "", "Directory scanned when no files are given (default from config)")
}

// runInspect prints one report per file.
func runInspect(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := effectiveConfig()
	if err != nil {
		return err
	}
	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.ArchiveDir)

	files, err := resolveInputs(fm, args, "")
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No input files found.")
		return nil
	}

	sources, err := converter.ReadSources(files)
	if err != nil {
		return err
	}

	conv := converter.New(converter.OptionsFromConfig(cfg), currentLogger())
	reports, err := conv.Inspect(commandContext(cmd), sources)
	if err != nil {
		return fmt.Errorf("inspect failed: %w", err)
	}

	for _, r := range reports {
		printReport(out, r)
	}
	return nil
}

// printReport prints one SheetReport. Row numbers are shown 1-based.
func printReport(out io.Writer, r converter.SheetReport) {
	fmt.Fprintf(out, "%s\n", r.File)

	if r.ItemHeaderRow >= 0 {
		fmt.Fprintf(out, "  Item table:       header row %d, %d records\n", r.ItemHeaderRow+1, r.ItemRecords)
		if r.InmarOrder != "" {
			fmt.Fprintf(out, "  Order number:     %s\n", r.InmarOrder)
		} else {
			fmt.Fprintln(out, "  Order number:     (none)")
		}
	} else {
		fmt.Fprintln(out, "  Item table:       not found")
	}

	if r.AltIDHeaderRow >= 0 {
		fmt.Fprintf(out, "  Alt-id table:     header row %d, %d records\n", r.AltIDHeaderRow+1, r.AltIDRecords)
		if r.HasOrderID {
			fmt.Fprintf(out, "  Order ID:         %s\n", r.OrderID)
		} else {
			fmt.Fprintln(out, "  Order ID:         (none)")
		}
	} else {
		fmt.Fprintln(out, "  Alt-id table:     not found")
	}

	summary := validation.Summarize(r.Findings)
	if summary.WarningCount+summary.ErrorCount > 0 {
		fmt.Fprintf(out, "  Findings:         %d\n", len(summary.Errors))
		for _, f := range summary.Errors {
			fmt.Fprintf(out, "    - %s\n", f.Error())
		}
	}
}
