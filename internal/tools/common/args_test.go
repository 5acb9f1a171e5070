package common

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calreminder/internal/reminder"
)

func TestParseCommaSeparatedList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "blank", input: "  ", want: nil},
		{name: "single", input: "a@example.com", want: []string{"a@example.com"}},
		{name: "several with spaces", input: "a@example.com, b@example.com ,c@example.com", want: []string{"a@example.com", "b@example.com", "c@example.com"}},
		{name: "empty entries dropped", input: "a,,b,", want: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCommaSeparatedList(tt.input)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStringArgs(t *testing.T) {
	args := map[string]any{
		"title":    "  Standup ",
		"blank":    "   ",
		"number":   3.0,
		"location": "",
	}

	s, ok := OptionalString(args, "title")
	assert.True(t, ok)
	assert.Equal(t, "Standup", s)

	_, ok = OptionalString(args, "blank")
	assert.False(t, ok)
	_, ok = OptionalString(args, "number")
	assert.False(t, ok)

	_, err := RequiredString(args, "missing")
	require.Error(t, err)
	assert.True(t, reminder.IsValidationError(err))

	p := StringPtr(args, "location")
	require.NotNil(t, p, "an explicit empty string clears the field")
	assert.Empty(t, *p)
	assert.Nil(t, StringPtr(args, "missing"))
}

func TestBoolPtr(t *testing.T) {
	args := map[string]any{"yes": true, "no": "false", "junk": "maybe"}

	require.NotNil(t, BoolPtr(args, "yes"))
	assert.True(t, *BoolPtr(args, "yes"))
	require.NotNil(t, BoolPtr(args, "no"))
	assert.False(t, *BoolPtr(args, "no"))
	assert.Nil(t, BoolPtr(args, "junk"))
	assert.Nil(t, BoolPtr(args, "missing"))
}

func TestStringList(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    []string
		wantErr bool
	}{
		{name: "comma separated", raw: "a@example.com, b@example.com", want: []string{"a@example.com", "b@example.com"}},
		{name: "json array", raw: []any{"a@example.com", " b@example.com "}, want: []string{"a@example.com", "b@example.com"}},
		{name: "empty array", raw: []any{}, want: []string{}},
		{name: "mixed array", raw: []any{"a@example.com", 3.0}, wantErr: true},
		{name: "wrong type", raw: 12.0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := StringList(map[string]any{"attendees": tt.raw}, "attendees")
			assert.True(t, ok)
			if tt.wantErr {
				assert.True(t, reminder.IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok, err := StringList(map[string]any{}, "attendees")
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestIntList(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    []int
		wantErr bool
	}{
		{name: "json numbers", raw: []any{15.0, 60.0}, want: []int{15, 60}},
		{name: "comma separated", raw: "0, 30,1440", want: []int{0, 30, 1440}},
		{name: "single number", raw: 45.0, want: []int{45}},
		{name: "fraction", raw: []any{1.5}, wantErr: true},
		{name: "not a number", raw: "soon", wantErr: true},
		{name: "wrong type", raw: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := IntList(map[string]any{"notification_minutes": tt.raw}, "notification_minutes")
			assert.True(t, ok)
			if tt.wantErr {
				assert.True(t, reminder.IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", result.Content[0])
	return text.Text
}

func TestSuccessAndFailure(t *testing.T) {
	result, err := Success(Response{"count": 2})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &doc))
	assert.Equal(t, map[string]any{"success": true, "count": float64(2)}, doc)

	failed := Failure("boom")
	assert.True(t, failed.IsError)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, failed)), &doc))
	assert.Equal(t, false, doc["success"])
	assert.Equal(t, "boom", doc["error"])
}

func TestFailureFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "not found", err: reminder.NotFound("abc"), want: "Reminder with ID 'abc' not found"},
		{name: "calendar disabled", err: fmt.Errorf("sync: %w", reminder.ErrCalendarDisabled), want: CalendarDisabledMessage},
		{name: "validation", err: reminder.NewValidationError("title", "must not be empty"), want: "invalid title: must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := resultText(t, FailureFromError("abc", tt.err))
			assert.True(t, strings.Contains(text, tt.want), text)
		})
	}
}
