// Package cmd implements the command-line interface for calreminder.
//
// This package provides the following commands:
//   - serve: Start the MCP server to provide reminder tools for AI assistants
//   - scheduler: Run the notification dispatch loop until interrupted
//   - pending: List notifications that have not been sent yet
//   - tick: Run a single dispatch tick
//   - auth: Authorize access to Google Calendar and Gmail
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The serve command is the default command when no subcommand is specified.
package cmd
