package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/housing-fill/pkg/audit"
	"github.com/David-Botos/housing-fill/pkg/config"
	"github.com/David-Botos/housing-fill/pkg/connector"
	"github.com/David-Botos/housing-fill/pkg/impute"
	"github.com/David-Botos/housing-fill/pkg/logging"
	"github.com/David-Botos/housing-fill/pkg/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "housefill:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "housefill",
		Short: "Fill missing values in the housing-price train and test splits",
		Long: `housefill loads train.csv and test.csv from DATA_DIR, fills missing
values with fixed domain rules, and prints every column that still has
missing values as "<column> <train count> <test count>".

Configuration is read from the environment and an optional .env file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func run(ctx context.Context, out io.Writer) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	var opts []pipeline.Option
	if cfg.AuditEnabled {
		conn, err := connector.NewConnectorFactory(cfg, logger).CreatePostgresConnector(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		recorder, err := audit.NewRecorder(ctx, conn, logger)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithRecorder(recorder))
	}

	p, err := pipeline.New(cfg, logger.Named("housefill"), impute.HousingPlan(), out, opts...)
	if err != nil {
		return err
	}

	if _, err := p.Run(ctx); err != nil {
		logger.Error("Imputation failed", zap.Error(err))
		return err
	}
	return nil
}
