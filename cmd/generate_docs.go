package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/calreminder/internal/lifecycle"
	"github.com/teemow/calreminder/internal/reminder"
	"github.com/teemow/calreminder/internal/server"
	"github.com/teemow/calreminder/internal/store"
	"github.com/teemow/calreminder/internal/tools/reminder_tools"
)

const (
	categoryRead  = "Reminder Tools"
	categoryWrite = "Write Tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command introspects the registered tools and outputs their documentation
in markdown format, so the reference always matches the implementation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func runGenerateDocs(outputFile string) error {
	readTools, err := introspectTools(true)
	if err != nil {
		return err
	}
	allTools, err := introspectTools(false)
	if err != nil {
		return err
	}

	readNames := make([]string, 0, len(readTools))
	for _, t := range readTools {
		readNames = append(readNames, t.Name)
	}

	markdown := generateToolsMarkdown(allTools, readNames)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
		return nil
	}
	fmt.Print(markdown)
	return nil
}

// introspectTools registers the tools against an in-memory store and returns
// their definitions.
func introspectTools(readOnly bool) ([]mcp.Tool, error) {
	manager := lifecycle.NewManager(store.NewMemoryCollection[*reminder.Reminder](store.RemindersCollection), lifecycle.Options{})
	sc := server.NewServerContext(context.Background(), server.Deps{Manager: manager, ReadOnly: readOnly})
	defer func() {
		_ = sc.Shutdown()
	}()

	mcpSrv := mcpserver.NewMCPServer("calreminder", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := reminder_tools.RegisterReminderTools(mcpSrv, sc); err != nil {
		return nil, fmt.Errorf("failed to register reminder tools: %w", err)
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}
	return tools, nil
}

// generateToolsMarkdown renders tools grouped by whether they stay available
// in read-only mode.
func generateToolsMarkdown(tools []mcp.Tool, readOnlyNames []string) string {
	var sb strings.Builder

	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document provides a complete reference of all tools available when running calreminder as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	byCategory := map[string][]mcp.Tool{}
	for _, tool := range tools {
		category := categoryWrite
		if slices.Contains(readOnlyNames, tool.Name) {
			category = categoryRead
		}
		byCategory[category] = append(byCategory[category], tool)
	}

	sb.WriteString("## Table of Contents\n\n")
	categories := []string{categoryRead, categoryWrite}
	for _, category := range categories {
		if len(byCategory[category]) == 0 {
			continue
		}
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		fmt.Fprintf(&sb, "- [%s](#%s)\n", category, anchor)
	}
	sb.WriteString("\n")

	sb.WriteString("## Read-Only Mode\n\n")
	sb.WriteString("When the server runs with `--read-only` only the tools listed under ")
	fmt.Fprintf(&sb, "*%s* are registered.\n\n", categoryRead)

	for _, category := range categories {
		categoryTools := byCategory[category]
		if len(categoryTools) == 0 {
			continue
		}
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		fmt.Fprintf(&sb, "## %s\n\n", category)
		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "### %s\n\n", tool.Name)

	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}

	if len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			propMap, ok := tool.InputSchema.Properties[name].(map[string]any)
			if !ok {
				continue
			}

			requiredStr := "optional"
			if slices.Contains(tool.InputSchema.Required, name) {
				requiredStr = "required"
			}

			fmt.Fprintf(&sb, "- `%s` (%s, %s): ", name, getPropertyType(propMap), requiredStr)
			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				fmt.Fprintf(&sb, "%s parameter", getPropertyType(propMap))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}
