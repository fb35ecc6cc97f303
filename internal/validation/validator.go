// =============================================================================
// MergeFiles - Validation Engine
// =============================================================================
//
// This module checks cleaned tables for the columns the merge relies on.
// Validation is advisory: the merge skips derived fields whose inputs are
// missing, so findings are reported as warnings and logged, never returned
// as errors from the pipeline.
//
// CHECKS:
//   1. Table-level: the table has at least one data row
//   2. Column-level: required columns are present
//   3. Cell-level: numeric columns hold values that parse completely
//      ("1,000" would be read as 1)
//
// =============================================================================

package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/elsoutlet/MergeFiles/internal/types"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Rule names.
const (
	RuleNonEmpty       = "non_empty"
	RuleRequiredColumn = "required_column"
	RuleNumeric        = "numeric"
)

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity indicates the severity of the finding.
	// "error" = the table cannot be used
	// "warning" = processing continues, some output may be blank
	Severity string

	// Table names the table the finding belongs to (e.g. "item", "alt-id").
	Table string

	// Field is the normalized column name, if the finding concerns one.
	Field string

	// Value is the offending cell value, for cell-level findings.
	Value string

	// Rule is the validation rule that was violated.
	Rule string

	// Message is a human-readable description.
	Message string

	// RowNumber is the 1-based data row within the table, or 0 for
	// table- and column-level findings.
	RowNumber int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s table", strings.ToUpper(e.Severity), e.Table)
	if e.RowNumber > 0 {
		fmt.Fprintf(&b, ", row %d", e.RowNumber)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ", field '%s'", e.Field)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	if e.Value != "" {
		fmt.Fprintf(&b, " (value: '%s')", e.Value)
	}
	return b.String()
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult summarizes a set of findings.
type ValidationResult struct {
	// IsValid is true if there are no error-severity findings.
	IsValid bool

	// Errors contains all findings, warnings included.
	Errors []*ValidationError

	// ErrorCount is the number of error-severity findings.
	ErrorCount int

	// WarningCount is the number of warnings.
	WarningCount int
}

// Summarize counts findings by severity.
func Summarize(errs []*ValidationError) *ValidationResult {
	result := &ValidationResult{IsValid: true, Errors: errs}
	for _, e := range errs {
		if e.Severity == SeverityError {
			result.ErrorCount++
			result.IsValid = false
			continue
		}
		result.WarningCount++
	}
	return result
}

// =============================================================================
// TABLE CHECKS
// =============================================================================

// CheckColumns reports an empty table and every required column the table
// does not carry. Column names are normalized before comparison.
func CheckColumns(table types.Table, required []string, tableName string) []*ValidationError {
	if len(table) == 0 {
		return []*ValidationError{{
			Severity: SeverityWarning,
			Table:    tableName,
			Rule:     RuleNonEmpty,
			Message:  "table has no data rows",
		}}
	}

	var errs []*ValidationError
	for _, col := range required {
		key := types.NormalizeName(col)
		if table.HasField(key) {
			continue
		}
		errs = append(errs, &ValidationError{
			Severity: SeverityWarning,
			Table:    tableName,
			Field:    key,
			Rule:     RuleRequiredColumn,
			Message:  "required column not found",
		})
	}
	return errs
}

// CheckNumeric reports cells in the given columns that are not plain
// decimal numbers. Such values are still read by their numeric prefix, so
// the finding is a warning. Empty cells are not reported.
func CheckNumeric(table types.Table, fields []string, tableName string) []*ValidationError {
	var errs []*ValidationError
	for i, rec := range table {
		for _, f := range fields {
			v, ok := rec.Get(types.NormalizeName(f))
			if !ok || v.IsEmpty() || v.Kind == types.KindNumber {
				continue
			}
			s := strings.TrimSpace(v.String())
			if _, err := strconv.ParseFloat(s, 64); err == nil {
				continue
			}
			errs = append(errs, &ValidationError{
				Severity:  SeverityWarning,
				Table:     tableName,
				Field:     types.NormalizeName(f),
				Value:     v.String(),
				Rule:      RuleNumeric,
				Message:   fmt.Sprintf("not a plain number, read as %s", types.Number(types.ParseNumber(v)).String()),
				RowNumber: i + 1,
			})
		}
	}
	return errs
}
