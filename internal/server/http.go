package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// MCPEndpoint is the path of the streamable HTTP transport.
const MCPEndpoint = "/mcp"

// HTTPServer serves the MCP streamable HTTP transport together with the
// health endpoints. It does not authenticate callers; bind it to a trusted
// interface.
type HTTPServer struct {
	handler http.Handler

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// NewHTTPServer builds the HTTP mux for mcpServer.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, sc *ServerContext, health *HealthChecker) *HTTPServer {
	mux := http.NewServeMux()

	streamable := mcpserver.NewStreamableHTTPServer(mcpServer,
		mcpserver.WithEndpointPath(MCPEndpoint),
	)
	mux.Handle(MCPEndpoint, MetricsMiddleware(sc.Metrics(), MCPEndpoint, streamable))

	if health != nil {
		health.RegisterHealthEndpoints(mux)
	}

	return &HTTPServer{handler: LoggingMiddleware(sc.Logger(), mux)}
}

// Handler returns the root handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// Start listens on addr and serves until Shutdown.
func (s *HTTPServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	// WriteTimeout stays unset: streamable HTTP responses may be long lived.
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.listener = ln
	s.mu.Unlock()

	return srv.Serve(ln)
}

// Addr returns the bound address, empty before Start.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully shuts down the server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
