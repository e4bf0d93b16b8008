// pkg/model/metadata.go
package model

import "strings"

// ColumnKind classifies the values a column holds
type ColumnKind string

const (
	KindCategorical ColumnKind = "categorical"
	KindInteger     ColumnKind = "integer"
	KindFloat       ColumnKind = "float"
)

// TableMetadata contains the structure information for a loaded table
type TableMetadata struct {
	Name    string   // Table name (train or test)
	Rows    int      // Row count
	Columns []Column // Column definitions in header order
}

// Column represents metadata about a table column
type Column struct {
	Name string     // Column name as in the file header
	Kind ColumnKind // Detected or pinned kind
}

// GetColumnByName returns a column by name (case-insensitive)
// Returns nil if column not found
func (tm *TableMetadata) GetColumnByName(name string) *Column {
	normalizedName := normalizeColumnName(name)
	for i, col := range tm.Columns {
		if normalizeColumnName(col.Name) == normalizedName {
			return &tm.Columns[i]
		}
	}
	return nil
}

// IsNumeric reports whether the column holds integers or floats
func (col *Column) IsNumeric() bool {
	return col.Kind == KindInteger || col.Kind == KindFloat
}

func normalizeColumnName(name string) string {
	return strings.ToLower(name)
}
