package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mmarqueti/activecampaign-mcp-server/internal/activecampaign"
)

const (
	DefaultName    = "activecampaign-mcp-server"
	DefaultVersion = "1.0.0"
)

const instructions = "Read-only access to ActiveCampaign contacts and their email tracking events. " +
	"Look contacts up by email or ID, search them, and fetch their tracking logs."

// Config holds MCP server configuration.
type Config struct {
	API     activecampaign.Config
	Name    string
	Version string
	Logger  *slog.Logger
}

// Server wraps the MCP SDK server around a Dispatcher that can be swapped
// while sessions are open.
type Server struct {
	mcpServer  *mcpsdk.Server
	logger     *slog.Logger
	mu         sync.RWMutex
	dispatcher *Dispatcher
}

// New creates an MCP server with the tool catalog registered.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Name
	if name == "" {
		name = DefaultName
	}
	version := cfg.Version
	if version == "" {
		version = DefaultVersion
	}

	s := &Server{logger: logger}
	if err := s.Reconfigure(cfg.API); err != nil {
		return nil, err
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{Name: name, Version: version},
		&mcpsdk.ServerOptions{Logger: logger, Instructions: instructions},
	)
	s.mcpServer.AddReceivingMiddleware(s.unknownTools)
	s.registerTools()
	return s, nil
}

// Reconfigure replaces the upstream client. Calls already in flight finish
// on the old one.
func (s *Server) Reconfigure(api activecampaign.Config) error {
	client, err := activecampaign.New(api)
	if err != nil {
		return fmt.Errorf("failed to create ActiveCampaign client: %w", err)
	}
	d := NewDispatcher(client, s.logger)

	s.mu.Lock()
	s.dispatcher = d
	s.mu.Unlock()
	return nil
}

// Dispatcher returns the dispatcher currently serving calls.
func (s *Server) Dispatcher() *Dispatcher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dispatcher
}

// Call dispatches one tool call outside of any MCP session.
func (s *Server) Call(ctx context.Context, name string, args json.RawMessage) Result {
	return s.Dispatcher().Call(ctx, name, args)
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// HTTPHandler serves the same server over streamable HTTP.
func (s *Server) HTTPHandler() http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server {
		return s.mcpServer
	}, &mcpsdk.StreamableHTTPOptions{Logger: s.logger})
}

// registerTools adds the catalog with one raw handler; arguments are decoded
// by the dispatcher.
func (s *Server) registerTools() {
	for _, tool := range Catalog() {
		s.mcpServer.AddTool(tool, s.handleTool)
	}
}

func (s *Server) handleTool(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	return toCallToolResult(s.Call(ctx, req.Params.Name, req.Params.Arguments)), nil
}

// unknownTools answers calls for unregistered names with the regular text
// envelope instead of a protocol error.
func (s *Server) unknownTools(next mcpsdk.MethodHandler) mcpsdk.MethodHandler {
	return func(ctx context.Context, method string, req mcpsdk.Request) (mcpsdk.Result, error) {
		if method == "tools/call" {
			if params, ok := req.GetParams().(*mcpsdk.CallToolParamsRaw); ok && Lookup(params.Name) == nil {
				return toCallToolResult(s.Call(ctx, params.Name, params.Arguments)), nil
			}
		}
		return next(ctx, method, req)
	}
}

func toCallToolResult(res Result) *mcpsdk.CallToolResult {
	out := &mcpsdk.CallToolResult{Content: make([]mcpsdk.Content, 0, len(res.Content))}
	for _, block := range res.Content {
		out.Content = append(out.Content, &mcpsdk.TextContent{Text: block.Text})
	}
	return out
}
