// Package server provides the MCP server context and the HTTP side of the
// calreminder server.
//
// ServerContext carries the lifecycle manager, the notification dispatcher,
// the optional in-process scheduler and the observability handles shared by
// all tool, resource and prompt handlers.
//
// HTTPServer exposes the streamable HTTP transport on /mcp next to the
// Kubernetes style health endpoints (/healthz, /readyz, /healthz/detailed).
// MetricsServer serves Prometheus metrics on a separate port.
package server
