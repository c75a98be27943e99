// Package mcp exposes a Renderer as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/tablecast"
	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/ports"
	"github.com/gabriel-vasile/mimetype"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps a Renderer and exposes it as an MCP Server.
type Server struct {
	renderer  ports.Renderer
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(renderer ports.Renderer, opts ...Option) *Server {
	s := &Server{
		renderer:  renderer,
		mcpServer: server.NewMCPServer("tablecast", tablecast.Version, server.WithToolCapabilities(false)),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying server, for transports not covered here.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("render_table",
		mcp.WithDescription("Render match text into a table image. "+
			"The text holds team lines such as \"A - Red\" followed by player lines such as \"Alice 1500\"."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Team and player lines, one per line")),
	), s.HandleRenderTable)

	s.mcpServer.AddTool(mcp.NewTool("list_strategies",
		mcp.WithDescription("List the rendering strategies in the order they are attempted."),
	), s.HandleListStrategies)
}

// HandleRenderTable renders the "text" argument. Input and rendering failures are
// tool errors, not protocol errors, so the model can read and report them.
func (s *Server) HandleRenderTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.renderer.Render(ctx, text)
	if err != nil {
		var failure *domain.Failure
		switch {
		case errors.As(err, &failure):
			s.logger.Warn("MCP render_table: all strategies failed", "attempts", len(failure.Attempts))
			return mcp.NewToolResultError(failure.Summary()), nil
		case errors.Is(err, domain.ErrInvalidInput):
			return mcp.NewToolResultError(err.Error()), nil
		default:
			s.logger.Error("MCP render_table failed", "err", err)
			return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
		}
	}

	caption := fmt.Sprintf("Rendered by %s", res.Strategy)
	if n := len(res.Attempts); n > 0 {
		caption += fmt.Sprintf(" after %d failed attempt(s)", n)
	}
	return mcp.NewToolResultImage(caption,
		base64.StdEncoding.EncodeToString(res.Image),
		mimetype.Detect(res.Image).String()), nil
}

// HandleListStrategies returns the strategy names, one per line.
func (s *Server) HandleListStrategies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(strings.Join(s.renderer.Strategies(), "\n")), nil
}
