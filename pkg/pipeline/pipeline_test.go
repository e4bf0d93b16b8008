package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/housing-fill/pkg/config"
	"github.com/David-Botos/housing-fill/pkg/dataset"
	"github.com/David-Botos/housing-fill/pkg/impute"
	"github.com/David-Botos/housing-fill/pkg/model"
	"github.com/David-Botos/housing-fill/pkg/verify"
)

const trainCSV = `Id,GarageType,GarageArea,LotFrontage
1,Attchd,548,65
2,NA,0,NA
3,Detchd,400,80
`

const testCSV = `Id,GarageType,GarageArea,LotFrontage
1,NA,0,70
2,NA,300,NA
3,Detchd,200,60
4,Detchd,250,NA
`

var garagePlan = &impute.Plan{
	Name: "garage",
	Steps: []impute.Step{
		{Scope: impute.ScopeBoth, Rule: impute.FillWhereZero{Name: "no_garage", Indicator: "GarageArea", Columns: []string{"GarageType"}, Value: "NoGarage"}},
		{Scope: impute.ScopeTest, Rule: impute.FillAll{Name: "garage_type_mode", Columns: []string{"GarageType"}, Value: "Attchd", Kind: model.OpModeFill}},
	},
}

var garageGroups = []verify.IndicatorGroup{
	{Indicator: "GarageArea", Columns: []string{"GarageType"}, Sentinel: "NoGarage"},
}

type countingRecorder struct {
	ops []model.CleaningOperation
}

func (c *countingRecorder) RecordCleaningOperations(_ context.Context, ops []model.CleaningOperation) error {
	c.ops = append(c.ops, ops...)
	return nil
}

func writeData(t *testing.T, train, test string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train.csv"), []byte(train), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.csv"), []byte(test), 0o644))
	return &config.Config{DataDir: dir, TrainFile: "train.csv", TestFile: "test.csv", LogLevel: "info", LogFormat: "console"}
}

func TestNew_Validation(t *testing.T) {
	cfg := &config.Config{}
	var out bytes.Buffer

	tests := []struct {
		name    string
		build   func() (*Pipeline, error)
		wantErr string
	}{
		{"nil config", func() (*Pipeline, error) { return New(nil, zap.NewNop(), garagePlan, &out) }, "config cannot be nil"},
		{"nil logger", func() (*Pipeline, error) { return New(cfg, nil, garagePlan, &out) }, "logger cannot be nil"},
		{"nil plan", func() (*Pipeline, error) { return New(cfg, zap.NewNop(), nil, &out) }, "plan cannot be nil"},
		{"nil writer", func() (*Pipeline, error) { return New(cfg, zap.NewNop(), garagePlan, nil) }, "output writer cannot be nil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestRun(t *testing.T) {
	cfg := writeData(t, trainCSV, testCSV)
	recorder := &countingRecorder{}
	var out bytes.Buffer

	p, err := New(cfg, zap.NewNop(), garagePlan, &out, WithGroups(garageGroups), WithRecorder(recorder))
	require.NoError(t, err)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	// LotFrontage is not covered by the plan and stays in the report
	assert.Equal(t, "LotFrontage 1 2\n", out.String())

	assert.Equal(t, 3, summary.Result.Metrics.TotalCellsFilled)
	assert.Len(t, recorder.ops, 3)
	assert.Empty(t, summary.Verification.IntegrityIssues)

	require.Len(t, summary.Verification.ModeDrift, 1)
	assert.Equal(t, verify.ModeMismatch{
		Dataset: "test", Column: "GarageType", Constant: "Attchd", Observed: "Detchd", ObservedCount: 2,
	}, summary.Verification.ModeDrift[0])
}

func TestRun_MissingFile(t *testing.T) {
	cfg := &config.Config{DataDir: t.TempDir(), TrainFile: "train.csv", TestFile: "test.csv"}
	p, err := New(cfg, zap.NewNop(), garagePlan, &bytes.Buffer{})
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "failed to load training data")
}

func TestRun_SchemaMismatch(t *testing.T) {
	cfg := writeData(t, trainCSV, testCSV)
	var out bytes.Buffer

	p, err := New(cfg, zap.NewNop(), impute.HousingPlan(), &out)
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, dataset.ErrColumnNotFound)
	assert.Empty(t, out.String())
}

func TestRun_SameTableName(t *testing.T) {
	cfg := writeData(t, trainCSV, testCSV)
	cfg.TestFile = cfg.TrainFile

	p, err := New(cfg, zap.NewNop(), garagePlan, &bytes.Buffer{})
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	assert.ErrorContains(t, err, "share the name")
}
