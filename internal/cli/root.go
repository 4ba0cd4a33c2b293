package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-quiz/backend/config"
	"github.com/aura-quiz/backend/pkg/database"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:          "quizctl",
		Short:        "Administrative tasks for the quiz backend",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	logger := func() *zap.Logger { return newLogger(verbose) }
	cmd.AddCommand(NewMigrateCmd(logger))
	cmd.AddCommand(NewSeedCmd(logger))
	return cmd
}

// openPool loads configuration and connects to PostgreSQL.
func openPool(ctx context.Context, logger *zap.Logger) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return nil, fmt.Errorf("quizctl needs STORE_DRIVER=%s, got %q", config.DriverPostgres, cfg.Database.Driver)
	}
	return database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
}

func newLogger(verbose bool) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, _ := config.Build()
	return logger
}
