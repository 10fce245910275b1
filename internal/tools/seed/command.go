package seed

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meetcute/meetcute-auth/internal/config"
	"github.com/meetcute/meetcute-auth/internal/database"
)

func NewCommand() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the bootstrap admin identity if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if email == "" {
				email = cfg.BootstrapAdminEmail
			}
			if email == "" {
				return fmt.Errorf("no admin email: pass --email or set BOOTSTRAP_ADMIN_EMAIL")
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

			password, err := database.SeedBootstrapAdmin(db, email)
			if err != nil {
				return err
			}
			if password == "" {
				cmd.Println("bootstrap admin already present")
				return nil
			}
			// Shown once; only the hash is persisted.
			cmd.Printf("bootstrap admin created: %s\ninitial password: %s\n", email, password)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email (defaults to BOOTSTRAP_ADMIN_EMAIL)")
	return cmd
}
