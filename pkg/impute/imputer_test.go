package impute

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/housing-fill/pkg/dataset"
	"github.com/David-Botos/housing-fill/pkg/model"
)

type fakeRecorder struct {
	calls int
	ops   []model.CleaningOperation
	err   error
}

func (f *fakeRecorder) RecordCleaningOperations(_ context.Context, ops []model.CleaningOperation) error {
	f.calls++
	f.ops = append(f.ops, ops...)
	return f.err
}

func TestNewImputer_Validation(t *testing.T) {
	_, err := NewImputer(nil, zap.NewNop())
	assert.EqualError(t, err, "plan cannot be nil")

	_, err = NewImputer(HousingPlan(), nil)
	assert.EqualError(t, err, "logger cannot be nil")

	im, err := NewImputer(HousingPlan(), zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, im)
}

func TestRun_NilTables(t *testing.T) {
	im, err := NewImputer(HousingPlan(), zap.NewNop())
	require.NoError(t, err)

	_, err = im.Run(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestRun_OperationsAndRecorder(t *testing.T) {
	train, test := housingTables(t)
	recorder := &fakeRecorder{}

	im, err := NewImputer(HousingPlan(), zap.NewNop(), WithRecorder(recorder))
	require.NoError(t, err)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	im.now = func() time.Time { return fixed }

	result, err := im.Run(context.Background(), train, test)
	require.NoError(t, err)

	require.NotEmpty(t, result.RunID)
	require.NotEmpty(t, result.Operations)
	assert.Equal(t, 1, recorder.calls)
	assert.Equal(t, result.Operations, recorder.ops)

	for _, op := range result.Operations {
		assert.Equal(t, result.RunID, op.RunID)
		assert.Equal(t, fixed, op.CleanedAt)
		assert.Contains(t, []string{"train", "test"}, op.Dataset)
		assert.NotEmpty(t, op.CleaningReason)
	}

	// The garage type of row 1116 is cleared first; the no-garage mask then fills it
	var row1116 []model.CleaningOperation
	for _, op := range result.Operations {
		if op.Dataset == "test" && op.Row == 1116 && op.ColumnName == "GarageType" {
			row1116 = append(row1116, op)
		}
	}
	require.Len(t, row1116, 2)
	assert.Equal(t, "garage_type_inconsistent", row1116[0].CleaningReason)
	assert.Equal(t, "Detchd", row1116[0].OriginalValue)
	assert.Equal(t, "no_garage", row1116[1].CleaningReason)
	assert.Equal(t, "NoGarage", row1116[1].NewValue)

	assert.Equal(t, len(result.Operations), result.Metrics.TotalCellsFilled)
	assert.Equal(t, 2*countScope(HousingPlan(), ScopeBoth)+countScope(HousingPlan(), ScopeTrain)+countScope(HousingPlan(), ScopeTest),
		result.Metrics.StepsApplied)
}

func countScope(p *Plan, scope Scope) int {
	n := 0
	for _, s := range p.Steps {
		if s.Scope == scope {
			n++
		}
	}
	return n
}

func TestRun_RecorderError(t *testing.T) {
	train, test := housingTables(t)
	recorder := &fakeRecorder{err: errors.New("connection refused")}

	im, err := NewImputer(HousingPlan(), zap.NewNop(), WithRecorder(recorder))
	require.NoError(t, err)

	result, err := im.Run(context.Background(), train, test)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record cleaning operations")
	require.NotNil(t, result)
	assert.NotEmpty(t, result.Operations)
}

func TestRun_StructuralMismatchLeavesTablesUntouched(t *testing.T) {
	train, _ := housingTables(t)

	// Too few rows for the fixed-row rules
	short := newFixture(100).set(5, na("Alley")).table(t, "test")

	im, err := NewImputer(HousingPlan(), zap.NewNop())
	require.NoError(t, err)

	_, err = im.Run(context.Background(), train, short)
	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrRowOutOfRange)

	assert.Equal(t, "<missing>", cell(t, short, 5, "Alley"))
	assert.Equal(t, "<missing>", cell(t, train, 8, "Alley"))
}

func TestRun_MissingColumn(t *testing.T) {
	_, test := housingTables(t)

	csv := "Id,LotFrontage\n1,65\n2,NA\n"
	train, err := dataset.ReadCSV("train", strings.NewReader(csv))
	require.NoError(t, err)

	im, err := NewImputer(HousingPlan(), zap.NewNop())
	require.NoError(t, err)

	_, err = im.Run(context.Background(), train, test)
	assert.ErrorIs(t, err, dataset.ErrColumnNotFound)
}

func TestRun_Cancelled(t *testing.T) {
	train, test := housingTables(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	im, err := NewImputer(HousingPlan(), zap.NewNop())
	require.NoError(t, err)

	_, err = im.Run(ctx, train, test)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_CustomPlan(t *testing.T) {
	plan := &Plan{
		Name: "garage-only",
		Steps: []Step{
			{Scope: ScopeTest, Rule: FillWhereZero{Name: "no_garage", Indicator: "GarageArea", Columns: []string{"GarageType"}, Value: "NoGarage"}},
			{Scope: ScopeBoth, Rule: FillAll{Name: "year_zero", Columns: []string{"GarageYrBlt"}, Value: 0}},
		},
	}
	train := smallTable(t)
	test := smallTable(t)

	im, err := NewImputer(plan, zap.NewNop())
	require.NoError(t, err)

	result, err := im.Run(context.Background(), train, test)
	require.NoError(t, err)

	// Scope keeps the mask rule off the train table
	assert.Equal(t, "<missing>", cell(t, train, 1, "GarageType"))
	assert.Equal(t, "NoGarage", cell(t, test, 1, "GarageType"))
	assert.Equal(t, 3, result.Metrics.StepsApplied)
	assert.Equal(t, 2+3+3, result.Metrics.TotalCellsFilled)
}
