package main

import (
	"github.com/spf13/cobra"

	"github.com/agentworks/casestudio/config"
	"github.com/agentworks/casestudio/internal/server"
)

func serveCMD(cfgPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the case-study API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(*cfgPath)
			return server.Run(cfg, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
