// pkg/audit/recorder.go
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/housing-fill/pkg/connector"
	"github.com/David-Botos/housing-fill/pkg/model"
)

// DefaultTable is the tracking table imputed cells are written to
const DefaultTable = "imputed_values"

var tableColumns = []string{
	"id BIGSERIAL PRIMARY KEY",
	"run_id UUID NOT NULL",
	"dataset TEXT NOT NULL",
	"column_name TEXT NOT NULL",
	"row_index INTEGER NOT NULL",
	"original_value TEXT",
	"new_value TEXT",
	"cleaning_operation TEXT NOT NULL",
	"cleaning_reason TEXT NOT NULL",
	"cleaned_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP",
}

// copyColumns is the COPY column order; it matches the db tags of
// model.CleaningOperation
var copyColumns = []string{
	"run_id",
	"dataset",
	"column_name",
	"row_index",
	"original_value",
	"new_value",
	"cleaning_operation",
	"cleaning_reason",
	"cleaned_at",
}

// Recorder writes cleaning operations to PostgreSQL
type Recorder struct {
	conn    connector.DatabaseConnector
	logger  *zap.Logger
	table   string
	timeout time.Duration
}

// Option configures a Recorder
type Option func(*Recorder)

// WithTable overrides the tracking table name
func WithTable(table string) Option {
	return func(r *Recorder) {
		r.table = table
	}
}

// WithTimeout bounds each recording transaction
func WithTimeout(timeout time.Duration) Option {
	return func(r *Recorder) {
		r.timeout = timeout
	}
}

// NewRecorder creates a Recorder and ensures the tracking table exists
func NewRecorder(ctx context.Context, conn connector.DatabaseConnector, logger *zap.Logger, opts ...Option) (*Recorder, error) {
	if conn == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	r := &Recorder{
		conn:    conn,
		logger:  logger.Named("audit"),
		table:   DefaultTable,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := conn.CreateTableIfNotExists(ctx, r.table, tableColumns); err != nil {
		return nil, fmt.Errorf("failed to setup tracking table: %w", err)
	}
	r.logger.Info("Ensured tracking table exists",
		zap.String("table", connector.QualifiedName(conn.Schema(), r.table)))

	return r, nil
}

// RecordCleaningOperations bulk loads operations into the tracking table in a
// single transaction
func (r *Recorder) RecordCleaningOperations(ctx context.Context, operations []model.CleaningOperation) (err error) {
	if len(operations) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.conn.DB().BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("Failed to rollback transaction",
					zap.Error(rbErr),
					zap.NamedError("cause", err))
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(r.conn.Schema(), r.table, copyColumns...))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}
	defer stmt.Close()

	for _, op := range operations {
		if _, err = stmt.ExecContext(ctx,
			op.RunID,
			op.Dataset,
			op.ColumnName,
			op.Row,
			toNullableString(op.OriginalValue),
			toNullableString(nonEmpty(op.NewValue)),
			op.CleaningOperation,
			op.CleaningReason,
			op.CleanedAt,
		); err != nil {
			return fmt.Errorf("failed to copy cleaning operation: %w", err)
		}
	}

	// An argument-less exec flushes the COPY buffer
	if _, err = stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to flush copy: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info("Recorded cleaning operations",
		zap.Int("count", len(operations)),
		zap.String("run_id", operations[0].RunID))
	return nil
}

func nonEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// toNullableString renders a value as text, keeping nil as SQL NULL
func toNullableString(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
