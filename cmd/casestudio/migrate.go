package main

import (
	"github.com/spf13/cobra"

	"github.com/agentworks/casestudio/config"
	"github.com/agentworks/casestudio/internal/server"
)

func migrateCMD(cfgPath *string) *cobra.Command {
	var (
		dir       string
		direction string
		steps     int
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(*cfgPath)

			var dsn string
			if err := cfg.Storage.Postgres.Validate(); err == nil {
				dsn = cfg.Storage.Postgres.DSN()
			}
			return server.Migrate(dir, dsn, direction, steps)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "file://migrations", "migrations source URL")
	cmd.Flags().StringVar(&direction, "direction", "up", "up or down")
	cmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to apply (0 = all)")
	return cmd
}
