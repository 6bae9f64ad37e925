// Package mcpserver exposes the date context service as a Model Context
// Protocol tool over stdio or streamable HTTP.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Sternrassler/datecontext/pkg/datecontext"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// Version is the MCP server version.
const Version = "1.0.0"

// ServerName is the implementation name announced to clients.
const ServerName = "datecontext"

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Analyzer builds date context snapshots.
type Analyzer interface {
	AnalyzeDateContext(ctx context.Context, placeName string, asOf *civil.Date) (*datecontext.Snapshot, error)
}

// Server is the MCP server for the date context tool.
type Server struct {
	analyzer Analyzer
	server   *mcp.Server
	logger   zerolog.Logger
}

// NewServer creates a server backed by analyzer.
func NewServer(analyzer Analyzer, logger zerolog.Logger) (*Server, error) {
	if analyzer == nil {
		return nil, errors.New("analyzer is required")
	}

	impl := &mcp.Implementation{
		Name:    ServerName,
		Version: Version,
	}

	s := &Server{
		analyzer: analyzer,
		server:   mcp.NewServer(impl, nil),
		logger:   logger.With().Str("component", "mcpserver").Logger(),
	}

	s.registerTools()

	return s, nil
}

// Run serves MCP over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info().Str("transport", "stdio").Msg("MCP server starting")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP handler for /mcp, wrapped with the
// API key check and per-client limiter configured in opts.
func (s *Server) Handler(opts HTTPOptions) http.Handler {
	var handler http.Handler = mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	if opts.RequestsPerMinute > 0 {
		handler = limitClients(opts.RequestsPerMinute, handler, s.logger)
	}
	if opts.APIKey != "" {
		handler = requireAPIKey(opts.APIKey, handler, s.logger)
	} else {
		s.logger.Warn().Msg("MCP_API_KEY not configured, /mcp is not authenticated")
	}

	return handler
}

// RunHTTP serves routes on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) RunHTTP(ctx context.Context, addr string, routes http.Handler) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           routes,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("transport", "http").Str("addr", addr).Msg("MCP server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down MCP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
