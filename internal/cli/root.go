package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmarqueti/activecampaign-mcp-server/internal/activecampaign"
	"github.com/mmarqueti/activecampaign-mcp-server/internal/config"
	acmcp "github.com/mmarqueti/activecampaign-mcp-server/internal/mcp"
	"github.com/mmarqueti/activecampaign-mcp-server/internal/telemetry"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigFile, "Path to config YAML (optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text, json")
}

var rootCmd = &cobra.Command{
	Use:          "activecampaign-mcp",
	Short:        "MCP server for ActiveCampaign contacts and tracking logs",
	Long:         "Exposes read-only ActiveCampaign lookups as Model Context Protocol tools:\ncontact lookup by email or ID, contact search and per-contact tracking logs.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd.ErrOrStderr())
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and installs the logger. Logs always go to w
// (stderr): stdout belongs to the stdio transport.
func setup(w io.Writer) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}

	l, err := newLogger(w, c.Log)
	if err != nil {
		return err
	}
	cfg = c
	logger = l
	slog.SetDefault(logger)
	return nil
}

func newLogger(w io.Writer, lc config.LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", lc.Level)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(lc.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q", lc.Format)
	}
}

func apiConfig(c *config.Config) activecampaign.Config {
	return activecampaign.Config{
		BaseURL: c.API.URL,
		Token:   c.API.Key,
		Timeout: c.API.Timeout,
	}
}

// newServer validates the loaded configuration and builds the MCP server.
func newServer() (*acmcp.Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	srv, err := acmcp.New(acmcp.Config{
		API:     apiConfig(cfg),
		Name:    acmcp.DefaultName,
		Version: version,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP server: %w", err)
	}
	return srv, nil
}

// reloadAPIConfig re-reads the config file and environment for hot reload.
func reloadAPIConfig() (activecampaign.Config, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return activecampaign.Config{}, err
	}
	if err := c.Validate(); err != nil {
		return activecampaign.Config{}, err
	}
	return apiConfig(c), nil
}

// startTracing installs the span exporter when tracing is enabled. The
// returned func flushes it.
func startTracing() func() {
	if !cfg.Tracing.Enabled {
		return func() {}
	}
	shutdown, err := telemetry.InitTracer(acmcp.DefaultName, version, os.Stderr, logger)
	if err != nil {
		logger.Warn("tracing disabled", slog.String("error", err.Error()))
		return func() {}
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown", slog.String("error", err.Error()))
		}
	}
}
