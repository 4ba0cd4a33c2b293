package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aura-quiz/backend/pkg/database"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(logger func() *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger()
			defer log.Sync()

			pool, err := openPool(cmd.Context(), log)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := database.Migrate(cmd.Context(), pool, log); err != nil {
				return err
			}
			cmd.Println("migrations applied")
			return nil
		},
	}
}
