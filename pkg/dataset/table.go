// pkg/dataset/table.go
package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/David-Botos/housing-fill/pkg/model"
)

var (
	// ErrColumnNotFound is returned when a rule names a column the table lacks
	ErrColumnNotFound = errors.New("column not found")
	// ErrRowOutOfRange is returned when a fixed row index exceeds the table
	ErrRowOutOfRange = errors.New("row out of range")
)

// MissingMarkers are the raw field values read as missing cells.
// "None" is deliberately absent: it is a real veneer category.
var MissingMarkers = []string{"", "NA", "NaN", "<nil>"}

// missingMarker is what gota stores for a cleared cell
const missingMarker = "NaN"

// Table is a named in-memory table whose cells can be mutated in place.
// Columns are held as gota series; elements returned by a series share the
// series' backing storage, so setting one updates the table.
type Table struct {
	name  string
	names []string
	cols  map[string]series.Series
	nrows int
}

type loadConfig struct {
	categorical []string
	delimiter   rune
}

// LoadOption customizes how a file is parsed
type LoadOption func(*loadConfig)

// Categorical pins the given columns to string type regardless of what
// type detection would infer from their values.
func Categorical(cols ...string) LoadOption {
	return func(c *loadConfig) {
		c.categorical = append(c.categorical, cols...)
	}
}

// WithDelimiter sets the field delimiter (default ',')
func WithDelimiter(d rune) LoadOption {
	return func(c *loadConfig) {
		c.delimiter = d
	}
}

// Load reads a delimited file. The table is named after the file without
// its extension.
func Load(path string, opts ...LoadOption) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ReadCSV(name, f, opts...)
}

// ReadCSV parses a header-first delimited stream into a Table
func ReadCSV(name string, r io.Reader, opts ...LoadOption) (*Table, error) {
	cfg := loadConfig{delimiter: ','}
	for _, opt := range opts {
		opt(&cfg)
	}

	types := make(map[string]series.Type, len(cfg.categorical))
	for _, col := range cfg.categorical {
		types[col] = series.String
	}

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(MissingMarkers),
		dataframe.WithTypes(types),
		dataframe.WithDelimiter(cfg.delimiter),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, df.Err)
	}

	return FromDataFrame(name, df), nil
}

// FromDataFrame wraps an already built dataframe
func FromDataFrame(name string, df dataframe.DataFrame) *Table {
	t := &Table{
		name:  name,
		names: df.Names(),
		cols:  make(map[string]series.Series, df.Ncol()),
		nrows: df.Nrow(),
	}
	for _, col := range t.names {
		t.cols[col] = df.Col(col)
	}
	return t
}

// Name returns the table name
func (t *Table) Name() string {
	return t.name
}

// Names returns the column names in header order
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Nrow returns the number of rows
func (t *Table) Nrow() int {
	return t.nrows
}

// HasColumn reports whether the table has a column with this exact name
func (t *Table) HasColumn(col string) bool {
	_, ok := t.cols[col]
	return ok
}

// Column returns the series backing col. Mutating its elements mutates the table.
func (t *Table) Column(col string) (series.Series, error) {
	s, ok := t.cols[col]
	if !ok {
		return series.Series{}, fmt.Errorf("%s.%s: %w", t.name, col, ErrColumnNotFound)
	}
	return s, nil
}

// Elem returns the cell at (row, col)
func (t *Table) Elem(row int, col string) (series.Element, error) {
	s, err := t.Column(col)
	if err != nil {
		return nil, err
	}
	if row < 0 || row >= t.nrows {
		return nil, fmt.Errorf("%s row %d (of %d): %w", t.name, row, t.nrows, ErrRowOutOfRange)
	}
	return s.Elem(row), nil
}

// IsMissing reports whether the cell at (row, col) holds no value
func (t *Table) IsMissing(row int, col string) (bool, error) {
	e, err := t.Elem(row, col)
	if err != nil {
		return false, err
	}
	return e.IsNA(), nil
}

// Value returns the cell rendered as a string; ok is false for missing cells
func (t *Table) Value(row int, col string) (value string, ok bool, err error) {
	e, err := t.Elem(row, col)
	if err != nil {
		return "", false, err
	}
	if e.IsNA() {
		return "", false, nil
	}
	return e.String(), true, nil
}

// Float returns the cell as a float64 (NaN for missing or non-numeric cells)
func (t *Table) Float(row int, col string) (float64, error) {
	e, err := t.Elem(row, col)
	if err != nil {
		return 0, err
	}
	return e.Float(), nil
}

// Set overwrites the cell at (row, col). value may be a string, int,
// float64 or a series.Element copied from another cell.
func (t *Table) Set(row int, col string, value interface{}) error {
	e, err := t.Elem(row, col)
	if err != nil {
		return err
	}
	e.Set(value)
	return nil
}

// Clear makes the cell at (row, col) missing
func (t *Table) Clear(row int, col string) error {
	return t.Set(row, col, missingMarker)
}

// MissingCount returns the number of missing cells in col
func (t *Table) MissingCount(col string) (int, error) {
	s, err := t.Column(col)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, na := range s.IsNaN() {
		if na {
			count++
		}
	}
	return count, nil
}

// Metadata describes the table's columns
func (t *Table) Metadata() *model.TableMetadata {
	meta := &model.TableMetadata{
		Name:    t.name,
		Rows:    t.nrows,
		Columns: make([]model.Column, 0, len(t.names)),
	}
	for _, col := range t.names {
		meta.Columns = append(meta.Columns, model.Column{
			Name: col,
			Kind: kindOf(t.cols[col].Type()),
		})
	}
	return meta
}

func kindOf(st series.Type) model.ColumnKind {
	switch st {
	case series.Int:
		return model.KindInteger
	case series.Float:
		return model.KindFloat
	default:
		return model.KindCategorical
	}
}
