// =============================================================================
// MergeFiles - File Management Utilities
// =============================================================================
//
// This module provides utilities for managing files during a merge run:
//   - Discovering export files in the input directory
//   - Naming and writing merged outputs
//   - Archiving inputs after a successful run
//   - Writing a run summary
//
// DIRECTORY STRUCTURE:
//   /input          - Exports to merge (.csv, .xlsx, .xls)
//   /output         - Merged CSV files, workbooks and run summaries
//   /input_archive  - Inputs moved here after a successful run
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for a merge run.
type FileManager struct {
	// InputDir is scanned for exports.
	InputDir string

	// OutputDir receives merged outputs.
	OutputDir string

	// ArchiveDir receives inputs after a successful run.
	ArchiveDir string

	// UseTimestampSubdirs archives into YYYY/MM/DD subdirectories.
	UseTimestampSubdirs bool
}

// NewFileManager creates a new FileManager.
func NewFileManager(inputDir, outputDir, archiveDir string) *FileManager {
	return &FileManager{
		InputDir:   inputDir,
		OutputDir:  outputDir,
		ArchiveDir: archiveDir,
	}
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles lists regular files in the input directory whose
// extension is one of extensions (case-insensitive), sorted by name so
// the merge sees a stable order. Subdirectories are not searched.
func (fm *FileManager) DiscoverInputFiles(extensions []string) ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var result []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), "~$") {
			continue
		}
		if !hasExtension(entry.Name(), extensions) {
			continue
		}
		result = append(result, filepath.Join(fm.InputDir, entry.Name()))
	}

	sort.Strings(result)
	return result, nil
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// =============================================================================
// OUTPUT
// =============================================================================

// WriteOutput writes data to name inside the output directory, creating the
// directory if needed, and returns the full path.
func (fm *FileManager) WriteOutput(name string, data []byte) (string, error) {
	if err := os.MkdirAll(fm.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(fm.OutputDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// GenerateOutputFileName generates an output file name based on the format.
//
// PARAMETERS:
//   - format: The name format with placeholders.
//   - ext: Extension appended when the result does not already end in it
//     (e.g. ".csv"). Empty leaves the name as is.
//   - params: Additional placeholder values, e.g. {"order": "555"}. Values
//     are sanitized for use in a file name.
//
// PLACEHOLDERS:
//   - {uuid}:      A random UUID (e.g., "550e8400-e29b-41d4-a716-446655440000")
//   - {timestamp}: Current timestamp (e.g., "20250126_143052")
//   - {date}:      Current date (e.g., "20250126")
//   - {time}:      Current time (e.g., "143052")
//   - Any key in params, e.g. {order}
func GenerateOutputFileName(format, ext string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	if strings.Contains(format, "{uuid}") {
		replacements["{uuid}"] = uuid.New().String()
	}

	for key, value := range params {
		replacements["{"+key+"}"] = SanitizeFileComponent(value)
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}

	return result
}

// SanitizeFileComponent replaces characters that are not safe in file names
// with '_'. An empty value becomes "unknown".
func SanitizeFileComponent(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, s)
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if the archive operation fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	archivePath := fm.getArchivePath(fm.ArchiveDir, filePath)

	archiveDir := filepath.Dir(archivePath)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	// Rename fails across devices; fall back to copy and remove.
	if err := os.Rename(filePath, archivePath); err != nil {
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// getArchivePath generates the archive path for a file.
func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	fileName := filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		now := time.Now()
		subDir := filepath.Join(
			archiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
		return filepath.Join(subDir, fileName)
	}

	return filepath.Join(archiveDir, fileName)
}

// =============================================================================
// SUMMARY LOGGING
// =============================================================================

// RunSummary contains the results of a merge run.
type RunSummary struct {
	StartTime    time.Time
	EndTime      time.Time
	InputFiles   []string
	MergedOrders []MergedOrderInfo
	Archived     []string
}

// MergedOrderInfo describes one written merge output.
type MergedOrderInfo struct {
	OrderID     string
	ItemFile    string
	AltIDFile   string
	Rows        int
	OutputFiles []string
}

// TotalRows is the number of merged data rows across all orders.
func (s RunSummary) TotalRows() int {
	n := 0
	for _, o := range s.MergedOrders {
		n += o.Rows
	}
	return n
}

// WriteSummaryLog writes a run summary to a text file in outputDir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary RunSummary, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := summary.EndTime.Format("20060102_150405")
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("merge_summary_%s.txt", timestamp))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "MergeFiles - Run Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Input Files:    %d\n"+
		"  Merged Orders:  %d\n"+
		"  Rows Written:   %d\n"+
		"  Archived Files: %d\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		len(summary.InputFiles),
		len(summary.MergedOrders),
		summary.TotalRows(),
		len(summary.Archived))

	if len(summary.InputFiles) > 0 {
		writer.WriteString("Input Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, f := range summary.InputFiles {
			fmt.Fprintf(writer, "  %s\n", f)
		}
		writer.WriteString("\n")
	}

	if len(summary.MergedOrders) > 0 {
		writer.WriteString("Merged Orders:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, o := range summary.MergedOrders {
			fmt.Fprintf(writer, "  Order:        %s\n", o.OrderID)
			fmt.Fprintf(writer, "  Item File:    %s\n", o.ItemFile)
			fmt.Fprintf(writer, "  Alt-ID File:  %s\n", o.AltIDFile)
			fmt.Fprintf(writer, "  Rows:         %d\n", o.Rows)
			for _, out := range o.OutputFiles {
				fmt.Fprintf(writer, "  Output:       %s\n", out)
			}
			writer.WriteString("\n")
		}
	} else {
		writer.WriteString("Nothing to merge.\n\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
