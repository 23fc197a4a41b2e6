package cli

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	acmcp "github.com/mmarqueti/activecampaign-mcp-server/internal/mcp"
)

var mcpWatch bool

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVar(&mcpWatch, "watch", false, "Reload the config file when it changes")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server on stdio",
	Long:  "Runs the server as an MCP (Model Context Protocol) server over stdio.\nExposes tools: get_contact_by_email, get_contact_by_id, search_contacts,\nget_contact_tracking_logs, get_contact_tracking_logs_by_email.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	srv, err := newServer()
	if err != nil {
		return err
	}
	defer startTracing()()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if mcpWatch {
		watch(ctx, srv)
	}

	logger.Info("ActiveCampaign MCP server running on stdio", slog.String("account", cfg.API.URL))
	err = srv.Run(ctx)
	logger.Info("MCP server stopped")
	return err
}

// watch starts hot reload of the config file. Failure to watch only
// disables reload.
func watch(ctx context.Context, srv *acmcp.Server) {
	reloader, err := acmcp.NewReloader(srv, configPath, reloadAPIConfig)
	if err != nil {
		logger.Warn("hot-reload disabled", slog.String("error", err.Error()))
		return
	}
	go func() { _ = reloader.Run(ctx) }()
	logger.Info("hot-reload enabled", slog.String("path", configPath))
}
