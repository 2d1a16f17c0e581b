package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"geoagent/internal/logger"
	"geoagent/internal/mcpserver"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tool registry over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol
			logger.SetOutput(os.Stderr)

			app, err := initTools()
			if err != nil {
				return err
			}
			defer app.Close()

			srv, err := mcpserver.New(app.Registry)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return mcpserver.Serve(ctx, srv)
		},
	}
}
