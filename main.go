// =============================================================================
// MergeFiles - Main Entry Point
// =============================================================================
//
// This is the main entry point for the MergeFiles CLI application. It
// initializes the Cobra CLI framework and delegates command execution to
// the cmd package.
//
// USAGE:
//   mergefiles merge        - Merge the exports in the input directory
//   mergefiles combine      - Merge and export everything as one workbook
//   mergefiles inspect      - Show what was detected in each file
//   mergefiles config init  - Write the default configuration
//   mergefiles version      - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Decoding, header detection, correlation and output shaping
//   - pkg/       : File management utilities
//
// =============================================================================

package main

import (
	"github.com/elsoutlet/MergeFiles/cmd"
)

// main is the entry point of the application.
func main() {
	cmd.Execute()
}
