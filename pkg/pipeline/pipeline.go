// pkg/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/housing-fill/pkg/config"
	"github.com/David-Botos/housing-fill/pkg/dataset"
	"github.com/David-Botos/housing-fill/pkg/impute"
	"github.com/David-Botos/housing-fill/pkg/verify"
)

// Pipeline loads both splits, imputes them and reports what is left
type Pipeline struct {
	cfg      *config.Config
	logger   *zap.Logger
	plan     *impute.Plan
	out      io.Writer
	groups   []verify.IndicatorGroup
	recorder impute.Recorder
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithRecorder sends every cleaning operation to r
func WithRecorder(r impute.Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithGroups replaces the indicator groups checked after imputation
func WithGroups(groups []verify.IndicatorGroup) Option {
	return func(p *Pipeline) {
		p.groups = groups
	}
}

// Summary is what one pipeline run produced
type Summary struct {
	Result       *impute.Result
	Verification *verify.VerificationReport
	Duration     time.Duration
}

// New creates a pipeline that writes its report to out
func New(cfg *config.Config, logger *zap.Logger, plan *impute.Plan, out io.Writer, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if plan == nil {
		return nil, errors.New("plan cannot be nil")
	}
	if out == nil {
		return nil, errors.New("output writer cannot be nil")
	}

	p := &Pipeline{
		cfg:    cfg,
		logger: logger,
		plan:   plan,
		out:    out,
		groups: verify.HousingGroups,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run executes load, impute, verify and report
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	categorical := dataset.Categorical(p.plan.CategoricalTargets()...)

	train, err := dataset.Load(p.cfg.TrainPath(), categorical)
	if err != nil {
		return nil, fmt.Errorf("failed to load training data: %w", err)
	}
	test, err := dataset.Load(p.cfg.TestPath(), categorical)
	if err != nil {
		return nil, fmt.Errorf("failed to load test data: %w", err)
	}
	if train.Name() == test.Name() {
		return nil, fmt.Errorf("train and test files share the name %q", train.Name())
	}

	p.logger.Info("Loaded datasets",
		zap.String("train", p.cfg.TrainPath()),
		zap.Int("train_rows", train.Nrow()),
		zap.String("test", p.cfg.TestPath()),
		zap.Int("test_rows", test.Nrow()))
	for _, t := range []*dataset.Table{train, test} {
		meta := t.Metadata()
		numeric := 0
		for i := range meta.Columns {
			if meta.Columns[i].IsNumeric() {
				numeric++
			}
		}
		p.logger.Debug("Column types",
			zap.String("dataset", meta.Name),
			zap.Int("columns", len(meta.Columns)),
			zap.Int("numeric", numeric))
	}

	var imputerOpts []impute.Option
	if p.recorder != nil {
		imputerOpts = append(imputerOpts, impute.WithRecorder(p.recorder))
	}
	imputer, err := impute.NewImputer(p.plan, p.logger, imputerOpts...)
	if err != nil {
		return nil, err
	}
	if err := imputer.Check(train, test); err != nil {
		return nil, err
	}

	verifier, err := verify.NewVerifier(p.logger, p.groups)
	if err != nil {
		return nil, err
	}

	// Modes are compared against the raw data, before fills reinforce them
	drift, err := verifier.ModeDrift(p.plan, train, test)
	if err != nil {
		return nil, fmt.Errorf("failed to check mode constants: %w", err)
	}

	result, err := imputer.Run(ctx, train, test)
	if err != nil {
		return nil, err
	}
	p.logger.Debug(result.Metrics.GenerateMetricsReport())

	report, err := verifier.GenerateVerificationReport(train, test)
	if err != nil {
		return nil, err
	}
	report.ModeDrift = drift

	for _, issue := range report.IntegrityIssues {
		p.logger.Warn(issue.Description,
			zap.String("type", issue.IssueType),
			zap.String("dataset", issue.Dataset),
			zap.Int("rows", issue.AffectedRows))
	}

	if err := verify.WriteReport(p.out, report.Missing); err != nil {
		return nil, err
	}

	summary := &Summary{
		Result:       result,
		Verification: report,
		Duration:     time.Since(start),
	}
	p.logger.Info("Pipeline complete",
		zap.String("run_id", result.RunID),
		zap.Int("cells_filled", result.Metrics.TotalCellsFilled),
		zap.Int("columns_incomplete", len(report.Missing)),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}
