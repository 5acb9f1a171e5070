package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/calreminder/internal/instrumentation"
	"github.com/teemow/calreminder/internal/logging"
	"github.com/teemow/calreminder/internal/prompts"
	"github.com/teemow/calreminder/internal/resources"
	"github.com/teemow/calreminder/internal/scheduler"
	"github.com/teemow/calreminder/internal/server"
	"github.com/teemow/calreminder/internal/tools/reminder_tools"
)

// Transport types.
const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// serveOptions holds the serve command flags.
type serveOptions struct {
	transport      string
	httpAddr       string
	readOnly       bool
	withScheduler  bool
	debugMode      bool
	metricsEnabled bool
	metricsAddr    string
}

func newServeCmd() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP (Model Context Protocol) server to provide reminder tools
to AI assistants.

Supports two transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP server with /healthz and /readyz endpoints

With --scheduler the notification dispatch loop runs inside the server
process. Otherwise run 'calreminder scheduler' separately.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("metrics-addr") {
				if addr := os.Getenv("METRICS_ADDR"); addr != "" {
					opts.metricsAddr = addr
				}
			}
			return runServe(opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&opts.readOnly, "read-only", false, "Disable tools that modify or delete existing reminders")
	cmd.Flags().BoolVar(&opts.withScheduler, "scheduler", false, "Run the notification dispatch loop in this process")
	cmd.Flags().BoolVar(&opts.debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&opts.metricsEnabled, "metrics-enabled", true, "Serve Prometheus metrics on a dedicated port (streamable-http only)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(opts serveOptions) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if opts.transport != transportStdio && opts.transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.transport)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.debugMode {
		cfg.LogLevel = "debug"
	}

	// stdout carries the protocol for stdio, so logs always go to stderr.
	a, err := newApp(shutdownCtx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	logger := a.logger

	metricsServer, err := startMetricsServer(opts, a)
	if err != nil {
		return err
	}
	defer func() {
		if metricsServer == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Warn("error during metrics server shutdown", logging.Err(err))
		}
	}()

	var sched *scheduler.Scheduler
	if opts.withScheduler {
		sched = scheduler.NewScheduler(a.dispatcher, cfg.SchedulerInterval, logger)
		if err := sched.Start(shutdownCtx); err != nil {
			return err
		}
	}

	serverContext := server.NewServerContext(shutdownCtx, server.Deps{
		Manager:       a.manager,
		Dispatcher:    a.dispatcher,
		Scheduler:     sched,
		Metrics:       a.provider.Metrics(),
		Audit:         instrumentation.NewAuditLogger(logger, a.provider.Config().AuditLogging),
		Logger:        logger,
		Location:      cfg.Location,
		EmailProvider: a.emailProvider,
		ReadOnly:      opts.readOnly,
	})
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("error during server context shutdown", logging.Err(err))
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("calreminder", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
		mcpserver.WithPromptCapabilities(false),
	)

	if err := registerAll(mcpSrv, serverContext); err != nil {
		return err
	}

	if opts.readOnly {
		logger.Info("starting server in read-only mode")
	}

	switch opts.transport {
	case transportStreamableHTTP:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, opts.httpAddr)
	default:
		return runStdioServer(mcpSrv)
	}
}

// startMetricsServer starts the dedicated metrics listener when the HTTP
// transport is used and metrics are exported to Prometheus.
func startMetricsServer(opts serveOptions, a *app) (*server.MetricsServer, error) {
	if opts.transport == transportStdio || !opts.metricsEnabled || !a.provider.Enabled() || !a.provider.ServesPrometheus() {
		return nil, nil
	}

	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    opts.metricsAddr,
		InstrumentationProvider: a.provider,
		Logger:                  a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	go func() {
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", logging.Err(err))
		}
	}()
	return metricsServer, nil
}

// registerAll registers every MCP tool, resource and prompt.
func registerAll(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	type registration struct {
		name     string
		register func() error
	}

	registrations := []registration{
		{
			name: "Reminder Tools",
			register: func() error {
				return reminder_tools.RegisterReminderTools(mcpSrv, sc)
			},
		},
		{
			name: "Reminder Resources",
			register: func() error {
				return resources.RegisterReminderResources(mcpSrv, sc)
			},
		},
		{
			name: "Prompts",
			register: func() error {
				return prompts.RegisterPrompts(mcpSrv)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}
	return nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, addr string) error {
	logger := sc.Logger()

	health := server.NewHealthChecker(sc, version)
	httpServer := server.NewHTTPServer(mcpSrv, sc, health)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	logger.Info("MCP server listening",
		slog.String("transport", transportStreamableHTTP),
		slog.String("addr", addr),
		slog.String("endpoint", server.MCPEndpoint))

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
