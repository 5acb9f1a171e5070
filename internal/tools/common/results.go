package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/calreminder/internal/reminder"
)

// CalendarDisabledMessage is returned by calendar tools when the integration
// is off.
const CalendarDisabledMessage = "Google Calendar integration is not enabled. Set GOOGLE_CALENDAR_ENABLED=true in the environment"

// Response is the envelope of every reminder tool result. Fields are merged
// into the top level of the JSON document.
type Response map[string]any

// Success returns a result {"success": true, ...fields}.
func Success(fields Response) (*mcp.CallToolResult, error) {
	doc := Response{"success": true}
	for k, v := range fields {
		doc[k] = v
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// Failure returns an error result {"success": false, "error": message}.
func Failure(message string) *mcp.CallToolResult {
	data, err := json.MarshalIndent(Response{"success": false, "error": message}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(message)
	}
	return mcp.NewToolResultError(string(data))
}

// FailureFromError maps domain errors onto the messages callers expect.
// id is the reminder the call referred to, if any.
func FailureFromError(id string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, reminder.ErrNotFound):
		return Failure(fmt.Sprintf("Reminder with ID '%s' not found", id))
	case errors.Is(err, reminder.ErrCalendarDisabled):
		return Failure(CalendarDisabledMessage)
	}
	return Failure(err.Error())
}
