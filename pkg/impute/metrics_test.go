package impute

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/housing-fill/pkg/model"
)

func TestMetrics_RecordStep(t *testing.T) {
	m := NewMetrics(zap.NewNop())
	m.StartDataset("train", 1460)
	m.StartDataset("test", 1459)

	m.RecordStep("train", "no_alley", []Change{
		{Row: 0, Column: "Alley", Kind: model.OpConstantFill},
		{Row: 1, Column: "Alley", Kind: model.OpConstantFill},
	})
	m.RecordStep("test", "no_garage", []Change{
		{Row: 39, Column: "GarageType", Kind: model.OpIndicatorFill},
		{Row: 39, Column: "GarageQual", Kind: model.OpIndicatorFill},
		{Row: 39, Column: "GarageCond", Kind: model.OpIndicatorFill},
	})
	m.RecordStep("test", "sale_type_mode", nil)
	m.Complete()

	assert.Equal(t, 3, m.StepsApplied)
	assert.Equal(t, 5, m.TotalCellsFilled)
	assert.Equal(t, 2, m.Datasets["train"].CellsFilled)
	assert.Equal(t, 1460, m.Datasets["train"].Rows)
	assert.Equal(t, 3, m.Datasets["test"].ByKind[model.OpIndicatorFill])
	assert.Equal(t, 1, m.Datasets["test"].ByColumn["GarageQual"])
	assert.Equal(t, 0, m.RuleCounts["sale_type_mode"])
	assert.False(t, m.EndTime.IsZero())
}

func TestMetrics_UnregisteredDataset(t *testing.T) {
	m := NewMetrics(nil)
	m.RecordStep("holdout", "no_fence", []Change{{Column: "Fence", Kind: model.OpConstantFill}})

	require.Contains(t, m.Datasets, "holdout")
	assert.Equal(t, 1, m.Datasets["holdout"].CellsFilled)
}

func TestMetrics_GenerateMetricsReport(t *testing.T) {
	m := NewMetrics(zap.NewNop())
	m.StartDataset("train", 3)
	m.RecordStep("train", "no_pool", []Change{{Column: "PoolQC", Kind: model.OpConstantFill}})
	m.RecordStep("train", "no_fence", []Change{
		{Column: "Fence", Kind: model.OpConstantFill},
		{Column: "Fence", Kind: model.OpConstantFill},
		{Column: "Fence", Kind: model.OpConstantFill},
	})
	m.Complete()

	report := m.GenerateMetricsReport()
	assert.Contains(t, report, "Imputation Metrics Report")
	assert.Contains(t, report, "Total Cells Filled:      4")
	assert.Contains(t, report, "- train: 3 rows, 4 cells filled, 2 columns touched")
	assert.Contains(t, report, "    constant_fill: 4")
	assert.Contains(t, report, "- no_fence: 3 (75.0%)")
	assert.Contains(t, report, "- no_pool: 1 (25.0%)")
	assert.Less(t, strings.Index(report, "- no_fence"), strings.Index(report, "- no_pool"))
}

func TestMetrics_ToJSON(t *testing.T) {
	m := NewMetrics(zap.NewNop())
	m.StartDataset("test", 10)
	m.RecordStep("test", "zoning_mode", []Change{{Column: "MSZoning", Kind: model.OpModeFill}})
	m.Complete()

	data, err := m.ToJSON()
	require.NoError(t, err)

	var decoded struct {
		Steps       int            `json:"steps"`
		CellsFilled int            `json:"cellsFilled"`
		Datasets    map[string]int `json:"datasets"`
		Rules       map[string]int `json:"rules"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 1, decoded.Steps)
	assert.Equal(t, 1, decoded.CellsFilled)
	assert.Equal(t, map[string]int{"test": 1}, decoded.Datasets)
	assert.Equal(t, map[string]int{"zoning_mode": 1}, decoded.Rules)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.50s"},
		{125 * time.Second, "2m 5s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in))
	}
}
