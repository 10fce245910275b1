package migrate

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/meetcute/meetcute-auth/internal/config"
	"github.com/meetcute/meetcute-auth/internal/database"
)

type options struct {
	timeout time.Duration
}

func NewCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the auth schema to the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer func() { _ = sqlDB.Close() }()
			sqlDB.SetConnMaxLifetime(opts.timeout)

			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			cmd.Println("schema migration applied")
			return nil
		},
	}
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	return cmd
}
