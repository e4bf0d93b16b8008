// pkg/model/cleaning.go
package model

import (
	"time"
)

// Operation kinds recorded for an imputed cell
const (
	OpConstantFill  = "constant_fill"  // Domain default for a missing cell
	OpIndicatorFill = "indicator_fill" // Default inferred from an indicator column
	OpModeFill      = "mode_fill"      // Literal most common value
	OpOverwrite     = "overwrite"      // Unconditional replacement at a fixed row
	OpColumnCopy    = "column_copy"    // Value copied from another column
)

// CleaningOperation represents a single imputed or corrected cell
type CleaningOperation struct {
	RunID             string      `db:"run_id"`             // Imputation run that produced the change
	Dataset           string      `db:"dataset"`            // Table name (train or test)
	ColumnName        string      `db:"column_name"`        // Column that was cleaned
	Row               int         `db:"row_index"`          // Zero-based row position
	OriginalValue     interface{} `db:"original_value"`     // Original value (nil when missing)
	NewValue          string      `db:"new_value"`          // New value after cleaning ("" when cleared)
	CleaningOperation string      `db:"cleaning_operation"` // Kind of cleaning performed (e.g. "indicator_fill")
	CleaningReason    string      `db:"cleaning_reason"`    // Rule that triggered it (e.g. "no_basement")
	CleanedAt         time.Time   `db:"cleaned_at"`         // When the cleaning occurred
}
