package reminder_tools

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calreminder/internal/lifecycle"
	"github.com/teemow/calreminder/internal/reminder"
	"github.com/teemow/calreminder/internal/scheduler"
	"github.com/teemow/calreminder/internal/server"
	"github.com/teemow/calreminder/internal/store"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeCalendar struct {
	deleteErr error
	created   int
}

func (f *fakeCalendar) CreateEvent(_ context.Context, _ *reminder.Reminder) (string, error) {
	f.created++
	return "evt-1", nil
}

func (f *fakeCalendar) UpdateEvent(_ context.Context, _ *reminder.Reminder) error {
	return nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, _ string) error {
	return f.deleteErr
}

type nopNotifier struct{}

func (nopNotifier) Send(context.Context, scheduler.Notification) error { return nil }

type fixture struct {
	sc       *server.ServerContext
	calendar *fakeCalendar
	clock    clock.FakeClock
}

func newFixture(t *testing.T, withCalendar, readOnly bool) *fixture {
	t.Helper()

	f := &fixture{calendar: &fakeCalendar{}, clock: clock.NewFake()}
	f.clock.Set(now)

	reminders := store.NewMemoryCollection[*reminder.Reminder](store.RemindersCollection)
	ledger := store.NewMemoryCollection[reminder.NotificationLogEntry](store.LedgerCollection)

	opts := lifecycle.Options{Clock: f.clock}
	if withCalendar {
		opts.Calendar = f.calendar
	}

	f.sc = server.NewServerContext(context.Background(), server.Deps{
		Manager:    lifecycle.NewManager(reminders, opts),
		Dispatcher: scheduler.NewDispatcher(reminders, ledger, nopNotifier{}, scheduler.DispatcherOptions{Clock: f.clock}),
		Location:   time.UTC,
		ReadOnly:   readOnly,
	})
	t.Cleanup(func() { _ = f.sc.Shutdown() })
	return f
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// decode returns the JSON document of a tool result.
func decode(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", result.Content[0])

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &doc), text.Text)
	return doc
}

func (f *fixture) create(t *testing.T, args map[string]any) string {
	t.Helper()
	result, err := handleCreateReminder(context.Background(), call(args), f.sc)
	require.NoError(t, err)
	doc := decode(t, result)
	require.Equal(t, true, doc["success"], doc)
	return doc["reminder_id"].(string)
}

func TestCreateReminder(t *testing.T) {
	f := newFixture(t, false, false)

	result, err := handleCreateReminder(context.Background(), call(map[string]any{
		"title":                "Team Sync",
		"datetime_str":         "2025-06-20T14:30:00",
		"attendees":            "alice@example.com, bob@example.com",
		"location":             "Room 1",
		"notification_minutes": []any{15.0, 60.0},
	}), f.sc)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	doc := decode(t, result)
	assert.Equal(t, true, doc["success"])
	assert.Equal(t, "Reminder created successfully for 'Team Sync' on 2025-06-20 at 14:30", doc["message"])
	assert.NotEmpty(t, doc["reminder_id"])

	details := doc["details"].(map[string]any)
	assert.Equal(t, "pending", details["status"])
	event := details["event"].(map[string]any)
	assert.Equal(t, []any{"alice@example.com", "bob@example.com"}, event["attendees"])
	settings := details["notification_settings"].(map[string]any)
	assert.Equal(t, []any{15.0, 60.0}, settings["minutes_before"])
	assert.Equal(t, true, settings["email_enabled"])
}

func TestCreateReminder_Errors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{
			name: "missing title",
			args: map[string]any{"datetime_str": "2025-06-20T14:30:00"},
			want: "invalid title: is required",
		},
		{
			name: "bad datetime",
			args: map[string]any{"title": "x", "datetime_str": "tomorrow"},
			want: "Use ISO format like '2024-12-25T14:30:00'",
		},
		{
			name: "past event",
			args: map[string]any{"title": "x", "datetime_str": "2025-06-01T09:00:00"},
			want: "invalid datetime",
		},
		{
			name: "bad attendee",
			args: map[string]any{"title": "x", "datetime_str": "2025-06-20T14:30:00", "attendees": "not-an-address"},
			want: "invalid attendees",
		},
		{
			name: "negative offset",
			args: map[string]any{"title": "x", "datetime_str": "2025-06-20T14:30:00", "notification_minutes": "-5"},
			want: "invalid notification_minutes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false, false)
			result, err := handleCreateReminder(context.Background(), call(tt.args), f.sc)
			require.NoError(t, err)
			assert.True(t, result.IsError)
			doc := decode(t, result)
			assert.Equal(t, false, doc["success"])
			assert.Contains(t, doc["error"], tt.want)
		})
	}
}

func TestGetReminder(t *testing.T) {
	f := newFixture(t, false, false)
	id := f.create(t, map[string]any{"title": "Dentist", "datetime_str": "2025-06-16T09:00:00"})

	doc := decode(t, mustCall(t, handleGetReminder, f, map[string]any{"reminder_id": id}))
	assert.Equal(t, true, doc["success"])
	assert.Equal(t, id, doc["reminder"].(map[string]any)["id"])

	result, err := handleGetReminder(context.Background(), call(map[string]any{"reminder_id": "nope"}), f.sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "Reminder with ID 'nope' not found", decode(t, result)["error"])
}

type handlerFunc func(context.Context, mcp.CallToolRequest, *server.ServerContext) (*mcp.CallToolResult, error)

func mustCall(t *testing.T, h handlerFunc, f *fixture, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := h(context.Background(), call(args), f.sc)
	require.NoError(t, err)
	require.False(t, result.IsError, "unexpected error result: %+v", result.Content)
	return result
}

func TestListReminders(t *testing.T) {
	f := newFixture(t, false, false)
	late := f.create(t, map[string]any{"title": "Late", "datetime_str": "2025-06-20T18:00:00"})
	early := f.create(t, map[string]any{"title": "Early", "datetime_str": "2025-06-18T08:00:00"})
	cancelled := f.create(t, map[string]any{"title": "Cancelled", "datetime_str": "2025-06-19T08:00:00"})
	_ = mustCall(t, handleUpdateReminder, f, map[string]any{"reminder_id": cancelled, "status": "cancelled"})

	ids := func(doc map[string]any) []string {
		var out []string
		for _, r := range doc["reminders"].([]any) {
			out = append(out, r.(map[string]any)["id"].(string))
		}
		return out
	}

	tests := []struct {
		name string
		args map[string]any
		want []string
	}{
		{name: "all sorted by start", args: map[string]any{}, want: []string{early, cancelled, late}},
		{name: "status filter", args: map[string]any{"status": "PENDING"}, want: []string{early, late}},
		{name: "date range with whole end day", args: map[string]any{"start_date": "2025-06-19", "end_date": "2025-06-20"}, want: []string{cancelled, late}},
		{name: "timestamp bound", args: map[string]any{"end_date": "2025-06-18T08:00:00"}, want: []string{early}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := decode(t, mustCall(t, handleListReminders, f, tt.args))
			assert.Equal(t, float64(len(tt.want)), doc["count"])
			assert.Equal(t, tt.want, ids(doc))
		})
	}

	t.Run("empty result", func(t *testing.T) {
		doc := decode(t, mustCall(t, handleListReminders, f, map[string]any{"status": "completed"}))
		assert.Equal(t, float64(0), doc["count"])
		assert.Equal(t, []any{}, doc["reminders"])
	})

	t.Run("inverted range", func(t *testing.T) {
		result, err := handleListReminders(context.Background(),
			call(map[string]any{"start_date": "2025-06-20", "end_date": "2025-06-19"}), f.sc)
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("unknown status", func(t *testing.T) {
		result, err := handleListReminders(context.Background(), call(map[string]any{"status": "done"}), f.sc)
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestUpdateReminder(t *testing.T) {
	f := newFixture(t, false, false)
	id := f.create(t, map[string]any{
		"title":        "Review",
		"datetime_str": "2025-06-20T10:00:00",
		"location":     "Office",
	})

	doc := decode(t, mustCall(t, handleUpdateReminder, f, map[string]any{
		"reminder_id":   id,
		"title":         "Design Review",
		"location":      "",
		"email_enabled": false,
	}))
	assert.Equal(t, "Reminder updated successfully", doc["message"])
	updated := doc["reminder"].(map[string]any)
	event := updated["event"].(map[string]any)
	assert.Equal(t, "Design Review", event["title"])
	_, hasLocation := event["location"]
	assert.False(t, hasLocation, "empty location clears the field")
	assert.Equal(t, false, updated["notification_settings"].(map[string]any)["email_enabled"])

	result, err := handleUpdateReminder(context.Background(), call(map[string]any{"reminder_id": id, "status": "completed"}), f.sc)
	require.NoError(t, err)
	assert.True(t, result.IsError, "pending reminders cannot be completed")

	result, err = handleUpdateReminder(context.Background(), call(map[string]any{"reminder_id": "missing", "title": "x"}), f.sc)
	require.NoError(t, err)
	assert.Equal(t, "Reminder with ID 'missing' not found", decode(t, result)["error"])
}

func TestCancelAndCompleteReminder(t *testing.T) {
	f := newFixture(t, false, false)
	id := f.create(t, map[string]any{"title": "Call", "datetime_str": "2025-06-20T10:00:00"})

	cancel := func(ctx context.Context, req mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		return handleTransition(ctx, req, sc, sc.Manager().Cancel, "cancelled")
	}
	complete := func(ctx context.Context, req mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		return handleTransition(ctx, req, sc, sc.Manager().Complete, "completed")
	}

	result, err := complete(context.Background(), call(map[string]any{"reminder_id": id}), f.sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)

	doc := decode(t, mustCall(t, cancel, f, map[string]any{"reminder_id": id}))
	assert.Equal(t, "Reminder 'Call' cancelled", doc["message"])
	assert.Equal(t, "cancelled", doc["reminder"].(map[string]any)["status"])

	result, err = cancel(context.Background(), call(map[string]any{}), f.sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestDeleteReminder(t *testing.T) {
	f := newFixture(t, true, false)
	id := f.create(t, map[string]any{"title": "Lunch", "datetime_str": "2025-06-20T12:00:00"})
	_ = mustCall(t, handleSyncToCalendar, f, map[string]any{"reminder_id": id})

	f.calendar.deleteErr = errors.New("backend unavailable")
	result, err := handleDeleteReminder(context.Background(), call(map[string]any{"reminder_id": id}), f.sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, decode(t, result)["error"], "Failed to delete from Google Calendar")

	f.calendar.deleteErr = nil
	doc := decode(t, mustCall(t, handleDeleteReminder, f, map[string]any{"reminder_id": id}))
	assert.Equal(t, "Reminder 'Lunch' deleted successfully", doc["message"])

	result, err = handleGetReminder(context.Background(), call(map[string]any{"reminder_id": id}), f.sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestSyncToCalendar(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, false, false)
		result, err := handleSyncToCalendar(context.Background(), call(map[string]any{}), f.sc)
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, decode(t, result)["error"], "GOOGLE_CALENDAR_ENABLED=true")
	})

	t.Run("all unsynced", func(t *testing.T) {
		f := newFixture(t, true, false)
		f.create(t, map[string]any{"title": "A", "datetime_str": "2025-06-20T12:00:00"})
		f.create(t, map[string]any{"title": "B", "datetime_str": "2025-06-21T12:00:00"})

		doc := decode(t, mustCall(t, handleSyncToCalendar, f, map[string]any{}))
		assert.Equal(t, float64(2), doc["synced"])
		assert.Equal(t, float64(0), doc["failed"])
		assert.Len(t, doc["results"], 2)

		doc = decode(t, mustCall(t, handleSyncToCalendar, f, map[string]any{}))
		assert.Equal(t, float64(0), doc["synced"], "synced reminders are skipped")
	})
}

func TestGetPendingNotifications(t *testing.T) {
	f := newFixture(t, false, false)
	id := f.create(t, map[string]any{
		"title":                "Soon",
		"datetime_str":         "2025-06-15T12:30:00",
		"notification_minutes": "60,10",
	})

	doc := decode(t, mustCall(t, handleGetPendingNotifications, f, map[string]any{}))
	assert.Equal(t, float64(2), doc["count"])

	notifications := doc["notifications"].([]any)
	first := notifications[0].(map[string]any)
	assert.Equal(t, id, first["reminder_id"])
	assert.Equal(t, float64(60), first["minutes_before"])
	assert.Equal(t, true, first["is_due"])
	second := notifications[1].(map[string]any)
	assert.Equal(t, float64(10), second["minutes_before"])
	assert.Equal(t, false, second["is_due"])
}

func TestGetCurrentDatetime(t *testing.T) {
	f := newFixture(t, false, false)

	doc := decode(t, mustCall(t, handleGetCurrentDatetime, f, map[string]any{}))
	assert.Equal(t, "2025-06-15T12:00:00", doc["current_datetime"])
	assert.Equal(t, "2025-06-15", doc["current_date"])
	assert.Equal(t, "12:00:00", doc["current_time"])
	assert.Equal(t, "Sunday", doc["day_of_week"])
	assert.Equal(t, "Sunday, June 15, 2025 at 12:00 PM", doc["formatted"])
	assert.Equal(t, "UTC", doc["timezone"])
}

func registeredTools(t *testing.T, sc *server.ServerContext) []string {
	t.Helper()

	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(false))
	require.NoError(t, RegisterReminderTools(s, sc))

	var names []string
	for _, serverTool := range s.ListTools() {
		names = append(names, serverTool.Tool.Name)
	}
	sort.Strings(names)
	return names
}

func TestRegisterReminderTools(t *testing.T) {
	readTools := []string{
		"create_reminder",
		"get_current_datetime",
		"get_pending_notifications",
		"get_reminder",
		"list_reminders",
	}

	t.Run("read-only", func(t *testing.T) {
		f := newFixture(t, false, true)
		assert.Equal(t, readTools, registeredTools(t, f.sc))
	})

	t.Run("read-write", func(t *testing.T) {
		f := newFixture(t, false, false)
		assert.Equal(t, []string{
			"cancel_reminder",
			"complete_reminder",
			"create_reminder",
			"delete_reminder",
			"get_current_datetime",
			"get_pending_notifications",
			"get_reminder",
			"list_reminders",
			"sync_to_calendar",
			"update_reminder",
		}, registeredTools(t, f.sc))
	})

	t.Run("requires manager", func(t *testing.T) {
		sc := server.NewServerContext(context.Background(), server.Deps{})
		defer func() { _ = sc.Shutdown() }()
		s := mcpserver.NewMCPServer("test", "0.0.0")
		assert.Error(t, RegisterReminderTools(s, sc))
	})
}
