package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentic-research/yxflow/internal/httpapi"
	"github.com/agentic-research/yxflow/internal/mcpserver"
)

var serveHTTP bool

func init() {
	serveCmd.Flags().BoolVar(&serveHTTP, "http", false, "Serve the HTTP API instead of MCP over stdio")
	serveCmd.Flags().String("addr", "", "HTTP listen address (default from server.http_addr)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the workflow tools over MCP stdio or HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if serveHTTP {
			api := httpapi.New(rt.registry, rt.log)
			return httpapi.Serve(ctx, api, rt.cfg.Server.HTTPAddr, rt.log)
		}
		s := mcpserver.New(rt.registry, Version)
		return mcpserver.ServeStdio(ctx, s, os.Stdin, os.Stdout, rt.log)
	},
}
