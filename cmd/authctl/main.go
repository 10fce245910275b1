package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/meetcute/meetcute-auth/internal/tools/migrate"
	"github.com/meetcute/meetcute-auth/internal/tools/seed"
)

func main() {
	root := &cobra.Command{
		Use:           "authctl",
		Short:         "Operational tooling for the MeetCute auth service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		migrate.NewCommand(),
		seed.NewCommand(),
	)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
