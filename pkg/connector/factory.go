// pkg/connector/factory.go
package connector

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/housing-fill/pkg/config"
)

// ErrAuditDisabled is returned when a connector is requested with auditing off
var ErrAuditDisabled = errors.New("audit sink is disabled")

// ConnectorFactory creates database connectors
type ConnectorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewConnectorFactory creates a new connector factory
func NewConnectorFactory(cfg *config.Config, logger *zap.Logger) *ConnectorFactory {
	return &ConnectorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreatePostgresConnector creates and validates the audit sink connection
func (f *ConnectorFactory) CreatePostgresConnector(ctx context.Context) (*PostgresConnector, error) {
	if !f.cfg.AuditEnabled || f.cfg.Postgres == nil {
		return nil, ErrAuditDisabled
	}

	f.logger.Info("Creating PostgreSQL connector")

	conn, err := NewPostgresConnector(ctx, f.cfg.Postgres, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL connector: %w", err)
	}

	if err := conn.Validate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
