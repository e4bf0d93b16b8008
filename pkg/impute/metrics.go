// pkg/impute/metrics.go
package impute

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DatasetMetrics tracks metrics for a single table
type DatasetMetrics struct {
	Name        string
	Rows        int
	CellsFilled int
	ByColumn    map[string]int // column -> cells changed
	ByKind      map[string]int // operation kind -> cells changed
}

// NewDatasetMetrics creates a new dataset metrics tracker
func NewDatasetMetrics(name string, rows int) *DatasetMetrics {
	return &DatasetMetrics{
		Name:     name,
		Rows:     rows,
		ByColumn: make(map[string]int),
		ByKind:   make(map[string]int),
	}
}

// Metrics tracks metrics for one imputation run
type Metrics struct {
	logger           *zap.Logger
	StartTime        time.Time
	EndTime          time.Time
	Datasets         map[string]*DatasetMetrics
	RuleCounts       map[string]int // rule reason -> cells changed
	StepsApplied     int
	TotalCellsFilled int
}

// NewMetrics creates a new metrics tracker
func NewMetrics(logger *zap.Logger) *Metrics {
	return &Metrics{
		logger:     logger,
		StartTime:  time.Now(),
		Datasets:   make(map[string]*DatasetMetrics),
		RuleCounts: make(map[string]int),
	}
}

// StartDataset registers a table before any rule touches it
func (m *Metrics) StartDataset(name string, rows int) {
	if _, ok := m.Datasets[name]; !ok {
		m.Datasets[name] = NewDatasetMetrics(name, rows)
	}
}

// RecordStep records the changes one rule made to one table
func (m *Metrics) RecordStep(dataset, reason string, changes []Change) {
	m.StepsApplied++

	dm, ok := m.Datasets[dataset]
	if !ok {
		dm = NewDatasetMetrics(dataset, 0)
		m.Datasets[dataset] = dm
	}

	for _, c := range changes {
		dm.ByColumn[c.Column]++
		dm.ByKind[c.Kind]++
	}
	dm.CellsFilled += len(changes)
	m.RuleCounts[reason] += len(changes)
	m.TotalCellsFilled += len(changes)

	if m.logger != nil {
		m.logger.Debug("Applied rule",
			zap.String("dataset", dataset),
			zap.String("rule", reason),
			zap.Int("cells", len(changes)))
	}
}

// Complete marks the run as finished
func (m *Metrics) Complete() {
	m.EndTime = time.Now()

	if m.logger != nil {
		m.logger.Info("Imputation complete",
			zap.Int("steps", m.StepsApplied),
			zap.Int("cells_filled", m.TotalCellsFilled),
			zap.Duration("duration", m.Duration()))
	}
}

// Duration returns the total duration of the run
func (m *Metrics) Duration() time.Duration {
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

// GenerateMetricsReport creates a detailed metrics report
func (m *Metrics) GenerateMetricsReport() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`
Imputation Metrics Report
=========================
Duration:                %s
Steps Applied:           %d
Total Cells Filled:      %d
`,
		formatDuration(m.Duration()),
		m.StepsApplied,
		m.TotalCellsFilled,
	))

	sb.WriteString("\nDataset Details\n---------------\n")
	for _, name := range sortedKeys(m.Datasets) {
		dm := m.Datasets[name]
		sb.WriteString(fmt.Sprintf("- %s: %d rows, %d cells filled, %d columns touched\n",
			name, dm.Rows, dm.CellsFilled, len(dm.ByColumn)))
		for _, kind := range sortedKeys(dm.ByKind) {
			sb.WriteString(fmt.Sprintf("    %s: %d\n", kind, dm.ByKind[kind]))
		}
	}

	if len(m.RuleCounts) > 0 {
		sb.WriteString("\nRule Distribution\n-----------------\n")
		for _, reason := range sortedKeys(m.RuleCounts) {
			count := m.RuleCounts[reason]
			sb.WriteString(fmt.Sprintf("- %s: %d (%.1f%%)\n",
				reason, count, getPercentage(float64(count), float64(m.TotalCellsFilled))))
		}
	}

	return sb.String()
}

// getPercentage safely calculates a percentage, avoiding division by zero
func getPercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * 100
}

// ToJSON serializes metrics to JSON
func (m *Metrics) ToJSON() ([]byte, error) {
	datasets := make(map[string]int, len(m.Datasets))
	for name, dm := range m.Datasets {
		datasets[name] = dm.CellsFilled
	}

	return json.Marshal(struct {
		Duration    string         `json:"duration"`
		Steps       int            `json:"steps"`
		CellsFilled int            `json:"cellsFilled"`
		Datasets    map[string]int `json:"datasets"`
		Rules       map[string]int `json:"rules"`
	}{
		Duration:    formatDuration(m.Duration()),
		Steps:       m.StepsApplied,
		CellsFilled: m.TotalCellsFilled,
		Datasets:    datasets,
		Rules:       m.RuleCounts,
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
