// pkg/impute/imputer.go
package impute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/housing-fill/pkg/dataset"
	"github.com/David-Botos/housing-fill/pkg/model"
)

// Recorder persists the audit trail of a run
type Recorder interface {
	RecordCleaningOperations(ctx context.Context, operations []model.CleaningOperation) error
}

// Imputer applies a plan to the train and test tables
type Imputer struct {
	plan     *Plan
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time
}

// Option configures an Imputer
type Option func(*Imputer)

// WithRecorder sends every run's operations to r
func WithRecorder(r Recorder) Option {
	return func(im *Imputer) {
		im.recorder = r
	}
}

// NewImputer creates a new Imputer instance
func NewImputer(plan *Plan, logger *zap.Logger, opts ...Option) (*Imputer, error) {
	if plan == nil {
		return nil, errors.New("plan cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	im := &Imputer{
		plan:   plan,
		logger: logger.Named("imputer"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im, nil
}

// Result is the outcome of one run
type Result struct {
	RunID      string
	Operations []model.CleaningOperation
	Metrics    *Metrics
}

// Run applies every step of the plan in order. The tables are mutated in
// place. Every rule is checked against both tables before the first cell
// changes, so a structural mismatch leaves the tables untouched.
func (im *Imputer) Run(ctx context.Context, train, test *dataset.Table) (*Result, error) {
	if train == nil || test == nil {
		return nil, errors.New("train and test tables cannot be nil")
	}

	if err := im.Check(train, test); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:   uuid.New().String(),
		Metrics: NewMetrics(im.logger),
	}
	result.Metrics.StartDataset(train.Name(), train.Nrow())
	result.Metrics.StartDataset(test.Name(), test.Nrow())

	im.logger.Info("Starting imputation",
		zap.String("run_id", result.RunID),
		zap.String("plan", im.plan.Name),
		zap.Int("steps", len(im.plan.Steps)),
		zap.Int("train_rows", train.Nrow()),
		zap.Int("test_rows", test.Nrow()))

	for i, step := range im.plan.Steps {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("imputation cancelled at step %d: %w", i, err)
		}

		for _, tbl := range tablesFor(step.Scope, train, test) {
			changes, err := step.Rule.Apply(tbl)
			if err != nil {
				return result, fmt.Errorf("step %d %s on %s: %w", i, describe(step.Rule), tbl.Name(), err)
			}
			result.Metrics.RecordStep(tbl.Name(), step.Rule.Reason(), changes)
			result.Operations = append(result.Operations,
				im.toOperations(result.RunID, tbl.Name(), step.Rule.Reason(), changes)...)
		}
	}

	result.Metrics.Complete()

	if im.recorder != nil && len(result.Operations) > 0 {
		if err := im.recorder.RecordCleaningOperations(ctx, result.Operations); err != nil {
			return result, fmt.Errorf("failed to record cleaning operations: %w", err)
		}
	}

	return result, nil
}

// Check verifies that every rule can run against the tables in its scope
func (im *Imputer) Check(train, test *dataset.Table) error {
	var errs []error
	for i, step := range im.plan.Steps {
		for _, tbl := range tablesFor(step.Scope, train, test) {
			if err := step.Rule.Check(tbl); err != nil {
				errs = append(errs, fmt.Errorf("step %d %s on %s: %w", i, describe(step.Rule), tbl.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

func (im *Imputer) toOperations(runID, table, reason string, changes []Change) []model.CleaningOperation {
	if len(changes) == 0 {
		return nil
	}

	cleanedAt := im.now()
	ops := make([]model.CleaningOperation, 0, len(changes))
	for _, c := range changes {
		ops = append(ops, model.CleaningOperation{
			RunID:             runID,
			Dataset:           table,
			ColumnName:        c.Column,
			Row:               c.Row,
			OriginalValue:     c.Original,
			NewValue:          c.New,
			CleaningOperation: c.Kind,
			CleaningReason:    reason,
			CleanedAt:         cleanedAt,
		})
	}
	return ops
}

func tablesFor(scope Scope, train, test *dataset.Table) []*dataset.Table {
	var out []*dataset.Table
	if scope.Includes(ScopeTrain) {
		out = append(out, train)
	}
	if scope.Includes(ScopeTest) {
		out = append(out, test)
	}
	return out
}
