// Package common provides shared utilities for MCP tool implementations:
// instrumentation of handlers, argument parsing and the JSON result
// envelope every reminder tool returns.
package common
