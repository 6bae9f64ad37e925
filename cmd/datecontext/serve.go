package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/datecontext/internal/config"
	"github.com/Sternrassler/datecontext/internal/mcpserver"
	"github.com/Sternrassler/datecontext/pkg/holidays"
	"github.com/spf13/cobra"
)

// prewarmYears is how many years from the current one are prefetched.
const prewarmYears = 2

func newServeCmd(c *cli) *cobra.Command {
	var transport, addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol server exposing analyze_date_context.

Over HTTP the server listens on server.addr (or :$PORT) and serves:
  /mcp      streamable MCP endpoint (X-API-Key required when MCP_API_KEY is set)
  /health   provider and cache status
  /metrics  Prometheus metrics

Examples:
  # HTTP (default)
  datecontext serve

  # Stdio, for desktop MCP clients
  datecontext serve --transport stdio`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if transport != "" {
				c.cfg.Server.Transport = transport
			}
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			return runServe(cmd.Context(), c)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "transport: http or stdio (default from config)")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default from config)")

	return cmd
}

func runServe(ctx context.Context, c *cli) error {
	cfg := c.cfg
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a, err := newApp(ctx, cfg, c.logger, true)
	if err != nil {
		return err
	}
	defer a.close()

	server, err := mcpserver.NewServer(a.service, c.logger)
	if err != nil {
		return err
	}

	go a.prewarm(ctx, time.Now().Year())

	if cfg.Server.Transport == config.TransportStdio {
		return server.Run(ctx)
	}

	routes := server.Routes(mcpserver.HTTPOptions{
		APIKey:            cfg.Server.APIKey,
		RequestsPerMinute: cfg.Server.RequestsPerMinute,
	}, a.health)

	return server.RunHTTP(ctx, cfg.Server.Addr, routes)
}

// prewarm fills the holiday cache for the configured countries. Failures are
// logged; the server keeps running and fetches on demand.
func (a *app) prewarm(ctx context.Context, fromYear int) {
	jobs := holidays.Jobs(a.cfg.Holidays.PrewarmCountries, fromYear, prewarmYears)
	if len(jobs) == 0 {
		return
	}

	prefetchCfg := holidays.DefaultPrefetchConfig()
	if a.cfg.Holidays.PrewarmWorkers > 0 {
		prefetchCfg.MaxConcurrency = a.cfg.Holidays.PrewarmWorkers
	}

	prefetcher := holidays.NewPrefetcher(a.catalog, prefetchCfg, a.logger)
	if _, err := prefetcher.Run(ctx, jobs); err != nil {
		a.logger.Warn().Err(err).Msg("Holiday prewarm incomplete")
	}
}
