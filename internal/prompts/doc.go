// Package prompts provides MCP prompts that guide an assistant through
// reminder workflows.
package prompts
