package verify

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/housing-fill/pkg/dataset"
	"github.com/David-Botos/housing-fill/pkg/impute"
)

// ColumnCount is the number of missing cells a column still holds per table
type ColumnCount struct {
	Column string
	Train  int
	Test   int
}

// IntegrityIssue represents a row group that disagrees with its indicator
type IntegrityIssue struct {
	IssueType    string
	Description  string
	Dataset      string
	ColumnName   string
	AffectedRows int
}

// Issue types reported by CheckIndicatorGroups
const (
	IssueMissingInGroup    = "MISSING_IN_ZERO_GROUP"
	IssueSentinelWithValue = "SENTINEL_WITH_NONZERO_INDICATOR"
)

// ModeMismatch is a literal mode constant that differs from the observed mode
type ModeMismatch struct {
	Dataset       string
	Column        string
	Constant      string
	Observed      string
	ObservedCount int
}

// IndicatorGroup ties categorical columns to the numeric column whose zero
// means the feature is absent
type IndicatorGroup struct {
	Indicator string
	Columns   []string
	Sentinel  string
}

// HousingGroups are the indicator groups of the housing dataset
var HousingGroups = []IndicatorGroup{
	{Indicator: "TotalBsmtSF", Columns: impute.BasementCategories, Sentinel: "NoBasement"},
	{Indicator: "GarageArea", Columns: impute.GarageCategories, Sentinel: "NoGarage"},
	{Indicator: "MasVnrArea", Columns: []string{"MasVnrType"}, Sentinel: "None"},
}

// VerificationReport contains the results of a verification pass
type VerificationReport struct {
	VerificationTime time.Time
	Missing          []ColumnCount
	IntegrityIssues  []IntegrityIssue
	ModeDrift        []ModeMismatch
	Duration         time.Duration
}

// Verifier inspects tables after imputation
type Verifier struct {
	logger *zap.Logger
	groups []IndicatorGroup
}

// NewVerifier creates a new verifier over the given indicator groups
func NewVerifier(logger *zap.Logger, groups []IndicatorGroup) (*Verifier, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Verifier{
		logger: logger.Named("verifier"),
		groups: groups,
	}, nil
}

// MissingReport counts missing cells for every test column, in header order,
// keeping the columns that are incomplete in either table
func (v *Verifier) MissingReport(train, test *dataset.Table) ([]ColumnCount, error) {
	if train == nil || test == nil {
		return nil, errors.New("train and test tables are required")
	}

	var counts []ColumnCount
	for _, col := range test.Names() {
		trainCount, err := train.MissingCount(col)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", train.Name(), err)
		}
		testCount, err := test.MissingCount(col)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", test.Name(), err)
		}
		if trainCount == 0 && testCount == 0 {
			continue
		}
		counts = append(counts, ColumnCount{Column: col, Train: trainCount, Test: testCount})
	}

	if len(counts) == 0 {
		v.logger.Info("No missing values remain")
	} else {
		v.logger.Warn("Missing values remain", zap.Int("columns", len(counts)))
	}
	return counts, nil
}

// WriteReport prints one "<column> <train> <test>" line per column
func WriteReport(w io.Writer, counts []ColumnCount) error {
	for _, c := range counts {
		if _, err := fmt.Fprintf(w, "%s %d %d\n", c.Column, c.Train, c.Test); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	return nil
}

// CheckIndicatorGroups checks that rows whose indicator is zero carry no
// missing group values, and that the sentinel is not used where the
// indicator says the feature exists
func (v *Verifier) CheckIndicatorGroups(t *dataset.Table) ([]IntegrityIssue, error) {
	var issues []IntegrityIssue
	meta := t.Metadata()

	for _, g := range v.groups {
		if col := meta.GetColumnByName(g.Indicator); col != nil && !col.IsNumeric() {
			return nil, fmt.Errorf("indicator %s of %s is not numeric", g.Indicator, t.Name())
		}
		mask, err := impute.ZeroMask(t, g.Indicator)
		if err != nil {
			return nil, fmt.Errorf("indicator %s: %w", g.Indicator, err)
		}

		for _, col := range g.Columns {
			var missing, misplaced int
			for row, zero := range mask {
				value, ok, err := t.Value(row, col)
				if err != nil {
					return nil, fmt.Errorf("group %s: %w", g.Indicator, err)
				}
				switch {
				case zero && !ok:
					missing++
				case !zero && ok && value == g.Sentinel && present(t, row, g.Indicator):
					misplaced++
				}
			}

			if missing > 0 {
				issues = append(issues, IntegrityIssue{
					IssueType:    IssueMissingInGroup,
					Description:  fmt.Sprintf("%s is missing where %s is zero", col, g.Indicator),
					Dataset:      t.Name(),
					ColumnName:   col,
					AffectedRows: missing,
				})
			}
			if misplaced > 0 {
				issues = append(issues, IntegrityIssue{
					IssueType:    IssueSentinelWithValue,
					Description:  fmt.Sprintf("%s is %q where %s is non-zero", col, g.Sentinel, g.Indicator),
					Dataset:      t.Name(),
					ColumnName:   col,
					AffectedRows: misplaced,
				})
			}
		}
	}

	if len(issues) == 0 {
		v.logger.Info("Indicator groups consistent", zap.String("dataset", t.Name()))
	} else {
		v.logger.Warn("Indicator group issues found",
			zap.String("dataset", t.Name()),
			zap.Int("issues", len(issues)))
	}
	return issues, nil
}

func present(t *dataset.Table, row int, col string) bool {
	missing, err := t.IsMissing(row, col)
	return err == nil && !missing
}

// ModeDrift compares the plan's literal mode constants with the observed most
// common value of each column. It only reports; constants are never replaced.
func (v *Verifier) ModeDrift(plan *impute.Plan, train, test *dataset.Table) ([]ModeMismatch, error) {
	var drift []ModeMismatch

	for _, mc := range plan.ModeConstants() {
		for _, target := range []struct {
			scope impute.Scope
			table *dataset.Table
		}{{impute.ScopeTrain, train}, {impute.ScopeTest, test}} {
			if !mc.Scope.Includes(target.scope) || target.table == nil {
				continue
			}
			observed, count, err := Mode(target.table, mc.Column)
			if err != nil {
				return nil, err
			}
			if count == 0 || observed == mc.Value {
				continue
			}
			drift = append(drift, ModeMismatch{
				Dataset:       target.table.Name(),
				Column:        mc.Column,
				Constant:      mc.Value,
				Observed:      observed,
				ObservedCount: count,
			})
			v.logger.Warn("Mode constant differs from data",
				zap.String("dataset", target.table.Name()),
				zap.String("column", mc.Column),
				zap.String("constant", mc.Value),
				zap.String("observed", observed))
		}
	}
	return drift, nil
}

// Mode returns the most common present value of col and its count. Ties go
// to the smallest value.
func Mode(t *dataset.Table, col string) (string, int, error) {
	freq := make(map[string]int)
	for row := 0; row < t.Nrow(); row++ {
		value, ok, err := t.Value(row, col)
		if err != nil {
			return "", 0, err
		}
		if ok {
			freq[value]++
		}
	}

	values := make([]string, 0, len(freq))
	for value := range freq {
		values = append(values, value)
	}
	sort.Strings(values)

	var best string
	var bestCount int
	for _, value := range values {
		if freq[value] > bestCount {
			best, bestCount = value, freq[value]
		}
	}
	return best, bestCount, nil
}

// GenerateVerificationReport runs every post-imputation check
func (v *Verifier) GenerateVerificationReport(train, test *dataset.Table) (*VerificationReport, error) {
	startTime := time.Now()
	report := &VerificationReport{VerificationTime: startTime}

	missing, err := v.MissingReport(train, test)
	if err != nil {
		return nil, fmt.Errorf("failed to count missing values: %w", err)
	}
	report.Missing = missing

	for _, t := range []*dataset.Table{train, test} {
		issues, err := v.CheckIndicatorGroups(t)
		if err != nil {
			return nil, fmt.Errorf("failed to check indicator groups: %w", err)
		}
		report.IntegrityIssues = append(report.IntegrityIssues, issues...)
	}

	report.Duration = time.Since(startTime)
	return report, nil
}
