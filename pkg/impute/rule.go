// pkg/impute/rule.go
package impute

import (
	"fmt"

	"github.com/David-Botos/housing-fill/pkg/dataset"
	"github.com/David-Botos/housing-fill/pkg/model"
)

// Change describes one cell a rule modified
type Change struct {
	Row      int
	Column   string
	Original interface{} // nil when the cell was missing
	New      string      // "" when the cell was cleared
	Kind     string      // model.Op* constant
}

// Rule is a single declarative fill action applied to one table
type Rule interface {
	// Reason names the rule in logs and audit records
	Reason() string
	// Check verifies the table has every column and row the rule touches
	Check(t *dataset.Table) error
	// Apply mutates the table and reports the changed cells
	Apply(t *dataset.Table) ([]Change, error)
	// CategoricalTargets lists columns the rule writes category names into
	CategoricalTargets() []string
}

// FillAt fills the missing cells of Columns at a fixed Row with Value
type FillAt struct {
	Name    string
	Row     int
	Columns []string
	Value   interface{}
	Kind    string // defaults to model.OpConstantFill
}

func (r FillAt) Reason() string { return r.Name }

func (r FillAt) Check(t *dataset.Table) error {
	return checkCells(t, r.Row, r.Columns...)
}

func (r FillAt) Apply(t *dataset.Table) ([]Change, error) {
	if err := r.Check(t); err != nil {
		return nil, err
	}

	kind := r.Kind
	if kind == "" {
		kind = model.OpConstantFill
	}

	var changes []Change
	for _, col := range r.Columns {
		change, err := fillMissing(t, r.Row, col, r.Value, kind)
		if err != nil {
			return changes, err
		}
		if change != nil {
			changes = append(changes, *change)
		}
	}
	return changes, nil
}

func (r FillAt) CategoricalTargets() []string {
	return categoricalIf(r.Value, r.Columns...)
}

// SetAt overwrites Column at a fixed Row. A nil Value clears the cell.
type SetAt struct {
	Name   string
	Row    int
	Column string
	Value  interface{}
}

func (r SetAt) Reason() string { return r.Name }

func (r SetAt) Check(t *dataset.Table) error {
	return checkCells(t, r.Row, r.Column)
}

func (r SetAt) Apply(t *dataset.Table) ([]Change, error) {
	if err := r.Check(t); err != nil {
		return nil, err
	}

	original, err := cellValue(t, r.Row, r.Column)
	if err != nil {
		return nil, err
	}

	if r.Value == nil {
		err = t.Clear(r.Row, r.Column)
	} else {
		err = t.Set(r.Row, r.Column, r.Value)
	}
	if err != nil {
		return nil, err
	}

	return changeIfDifferent(t, r.Row, r.Column, original, model.OpOverwrite)
}

func (r SetAt) CategoricalTargets() []string {
	return categoricalIf(r.Value, r.Column)
}

// FillWhereZero fills the missing cells of Columns on every row where
// Indicator equals zero. A missing indicator never matches.
type FillWhereZero struct {
	Name      string
	Indicator string
	Columns   []string
	Value     interface{}
}

func (r FillWhereZero) Reason() string { return r.Name }

func (r FillWhereZero) Check(t *dataset.Table) error {
	return checkColumns(t, append([]string{r.Indicator}, r.Columns...)...)
}

func (r FillWhereZero) Apply(t *dataset.Table) ([]Change, error) {
	if err := r.Check(t); err != nil {
		return nil, err
	}

	mask, err := ZeroMask(t, r.Indicator)
	if err != nil {
		return nil, err
	}

	var changes []Change
	for _, col := range r.Columns {
		for row, hit := range mask {
			if !hit {
				continue
			}
			change, err := fillMissing(t, row, col, r.Value, model.OpIndicatorFill)
			if err != nil {
				return changes, err
			}
			if change != nil {
				changes = append(changes, *change)
			}
		}
	}
	return changes, nil
}

func (r FillWhereZero) CategoricalTargets() []string {
	return categoricalIf(r.Value, r.Columns...)
}

// FillAll fills every missing cell of Columns with Value
type FillAll struct {
	Name    string
	Columns []string
	Value   interface{}
	Kind    string // defaults to model.OpConstantFill
}

func (r FillAll) Reason() string { return r.Name }

func (r FillAll) Check(t *dataset.Table) error {
	return checkColumns(t, r.Columns...)
}

func (r FillAll) Apply(t *dataset.Table) ([]Change, error) {
	if err := r.Check(t); err != nil {
		return nil, err
	}

	kind := r.Kind
	if kind == "" {
		kind = model.OpConstantFill
	}

	var changes []Change
	for _, col := range r.Columns {
		for row := 0; row < t.Nrow(); row++ {
			change, err := fillMissing(t, row, col, r.Value, kind)
			if err != nil {
				return changes, err
			}
			if change != nil {
				changes = append(changes, *change)
			}
		}
	}
	return changes, nil
}

func (r FillAll) CategoricalTargets() []string {
	return categoricalIf(r.Value, r.Columns...)
}

// CopyAt overwrites Target at a fixed Row with the value of Source on the same row
type CopyAt struct {
	Name   string
	Row    int
	Target string
	Source string
}

func (r CopyAt) Reason() string { return r.Name }

func (r CopyAt) Check(t *dataset.Table) error {
	return checkCells(t, r.Row, r.Target, r.Source)
}

func (r CopyAt) Apply(t *dataset.Table) ([]Change, error) {
	if err := r.Check(t); err != nil {
		return nil, err
	}

	original, err := cellValue(t, r.Row, r.Target)
	if err != nil {
		return nil, err
	}

	src, err := t.Elem(r.Row, r.Source)
	if err != nil {
		return nil, err
	}
	if err := t.Set(r.Row, r.Target, src); err != nil {
		return nil, err
	}

	return changeIfDifferent(t, r.Row, r.Target, original, model.OpColumnCopy)
}

func (r CopyAt) CategoricalTargets() []string { return nil }

// ZeroMask marks the rows where col holds a numeric zero
func ZeroMask(t *dataset.Table, col string) ([]bool, error) {
	mask := make([]bool, t.Nrow())
	for row := range mask {
		v, err := t.Float(row, col)
		if err != nil {
			return nil, err
		}
		// NaN never compares equal
		mask[row] = v == 0
	}
	return mask, nil
}

// fillMissing sets the cell only when it is missing
func fillMissing(t *dataset.Table, row int, col string, value interface{}, kind string) (*Change, error) {
	missing, err := t.IsMissing(row, col)
	if err != nil || !missing {
		return nil, err
	}

	if err := t.Set(row, col, value); err != nil {
		return nil, err
	}

	newValue, _, err := t.Value(row, col)
	if err != nil {
		return nil, err
	}
	return &Change{Row: row, Column: col, Original: nil, New: newValue, Kind: kind}, nil
}

func changeIfDifferent(t *dataset.Table, row int, col string, original interface{}, kind string) ([]Change, error) {
	current, err := cellValue(t, row, col)
	if err != nil {
		return nil, err
	}
	if current == original {
		return nil, nil
	}

	newValue, _ := current.(string)
	return []Change{{Row: row, Column: col, Original: original, New: newValue, Kind: kind}}, nil
}

// cellValue returns the rendered cell, or nil when it is missing
func cellValue(t *dataset.Table, row int, col string) (interface{}, error) {
	value, ok, err := t.Value(row, col)
	if err != nil || !ok {
		return nil, err
	}
	return value, nil
}

func checkColumns(t *dataset.Table, cols ...string) error {
	for _, col := range cols {
		if _, err := t.Column(col); err != nil {
			return err
		}
	}
	return nil
}

func checkCells(t *dataset.Table, row int, cols ...string) error {
	for _, col := range cols {
		if _, err := t.Elem(row, col); err != nil {
			return err
		}
	}
	return nil
}

func categoricalIf(value interface{}, cols ...string) []string {
	if _, ok := value.(string); !ok {
		return nil
	}
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

// describe renders a rule for logs
func describe(r Rule) string {
	return fmt.Sprintf("%T(%s)", r, r.Reason())
}
