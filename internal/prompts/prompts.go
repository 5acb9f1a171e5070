package prompts

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// CollectEventDetails is the name of the event intake prompt.
const CollectEventDetails = "collect_event_details"

//go:embed templates/*.md
var templateFS embed.FS

var collectTemplate = template.Must(template.ParseFS(templateFS, "templates/collect_event_details.md"))

// RegisterPrompts registers all prompts with the MCP server.
func RegisterPrompts(s *mcpserver.MCPServer) error {
	prompt := mcp.NewPrompt(CollectEventDetails,
		mcp.WithPromptDescription("Guide a conversation that collects the details needed to create a calendar reminder"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("What the user wants to be reminded about, if already known"),
		),
	)

	s.AddPrompt(prompt, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return handleCollectEventDetails(ctx, request)
	})
	return nil
}

func handleCollectEventDetails(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := strings.TrimSpace(request.Params.Arguments["topic"])

	text, err := RenderCollectEventDetails(topic)
	if err != nil {
		return nil, err
	}

	return mcp.NewGetPromptResult(
		"Collect calendar event details from the user",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
		},
	), nil
}

// RenderCollectEventDetails renders the intake instructions. An empty topic
// makes the assistant open the conversation itself.
func RenderCollectEventDetails(topic string) (string, error) {
	var buf bytes.Buffer
	if err := collectTemplate.Execute(&buf, struct{ Topic string }{Topic: topic}); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", CollectEventDetails, err)
	}
	return buf.String(), nil
}
