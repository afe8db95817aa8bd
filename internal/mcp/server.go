// Package mcp exposes the design pipeline as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
)

// ServerName is reported to MCP clients.
const ServerName = "hdlift-mcp"

// Server manages the MCP server lifecycle.
type Server struct {
	mcp    *server.MCPServer
	logger *slog.Logger
}

// NewServer registers hdl_hierarchy, hdl_module and hdl_ancestors.
func NewServer(version string, prep DesignPreparer, load SourceLoader, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
	)

	AddHierarchyTool(mcpServer, prep)
	AddModuleTool(mcpServer, load)
	AddAncestorsTool(mcpServer, prep)

	return &Server{mcp: mcpServer, logger: logger}
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting MCP server on stdio")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		s.logger.Info("received shutdown signal, stopping gracefully")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
