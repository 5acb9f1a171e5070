package reminder_tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calreminder/internal/lifecycle"
	"github.com/teemow/calreminder/internal/reminder"
	"github.com/teemow/calreminder/internal/server"
	"github.com/teemow/calreminder/internal/tools/common"
)

const (
	// longDateTimeLayout renders e.g. "Monday, January 02, 2006 at 03:04 PM".
	longDateTimeLayout = "Monday, January 02, 2006 at 03:04 PM"
	datetimeExample    = "'2024-12-25T14:30:00'"
)

// RegisterReminderTools registers all reminder tools with the MCP server.
// Tools that modify existing reminders are skipped in read-only mode.
func RegisterReminderTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc.Manager() == nil {
		return errors.New("reminder tools require a lifecycle manager")
	}

	createReminderTool := mcp.NewTool("create_reminder",
		mcp.WithDescription("Create a new calendar reminder. Notifications are emailed at the configured minutes before the event."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Event title"),
		),
		mcp.WithString("datetime_str",
			mcp.Required(),
			mcp.Description("Event date and time in ISO format (e.g. \"2024-12-25T14:30:00\"). Times without an offset use the server's timezone."),
		),
		mcp.WithString("attendees",
			mcp.Description("Comma-separated attendee email addresses"),
		),
		mcp.WithString("location",
			mcp.Description("Event location"),
		),
		mcp.WithString("description",
			mcp.Description("Event description"),
		),
		mcp.WithString("notification_minutes",
			mcp.Description("Comma-separated minutes before the event to send notifications (default: 60,1440)"),
		),
		mcp.WithBoolean("email_enabled",
			mcp.Description("Send email notifications for this reminder (default: true)"),
		),
	)
	s.AddTool(createReminderTool, common.InstrumentedToolHandler("create_reminder", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateReminder(ctx, request, sc)
		}))

	getReminderTool := mcp.NewTool("get_reminder",
		mcp.WithDescription("Get details of a specific reminder"),
		mcp.WithString("reminder_id",
			mcp.Required(),
			mcp.Description("The ID of the reminder to retrieve"),
		),
	)
	s.AddTool(getReminderTool, common.InstrumentedToolHandler("get_reminder", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetReminder(ctx, request, sc)
		}))

	listRemindersTool := mcp.NewTool("list_reminders",
		mcp.WithDescription("List reminders sorted by event time, with optional date range and status filters"),
		mcp.WithString("start_date",
			mcp.Description("Only reminders at or after this date/time (ISO format)"),
		),
		mcp.WithString("end_date",
			mcp.Description("Only reminders at or before this date/time (ISO format). A plain date includes the whole day."),
		),
		mcp.WithString("status",
			mcp.Description("Filter by status: pending, notified, completed, cancelled"),
		),
	)
	s.AddTool(listRemindersTool, common.InstrumentedToolHandler("list_reminders", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListReminders(ctx, request, sc)
		}))

	pendingTool := mcp.NewTool("get_pending_notifications",
		mcp.WithDescription("List notifications that have not been sent yet, in the order they become due"),
	)
	s.AddTool(pendingTool, common.InstrumentedToolHandler("get_pending_notifications", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetPendingNotifications(ctx, request, sc)
		}))

	currentDatetimeTool := mcp.NewTool("get_current_datetime",
		mcp.WithDescription("Get the current date and time. Use this before interpreting relative dates such as 'tomorrow' or 'next Friday'."),
	)
	s.AddTool(currentDatetimeTool, common.InstrumentedToolHandler("get_current_datetime", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetCurrentDatetime(ctx, request, sc)
		}))

	if sc.ReadOnly() {
		return nil
	}

	updateReminderTool := mcp.NewTool("update_reminder",
		mcp.WithDescription("Update an existing reminder. Only the given fields change; a synced calendar event is updated too."),
		mcp.WithString("reminder_id",
			mcp.Required(),
			mcp.Description("The ID of the reminder to update"),
		),
		mcp.WithString("title",
			mcp.Description("New event title"),
		),
		mcp.WithString("datetime_str",
			mcp.Description("New event date and time in ISO format"),
		),
		mcp.WithString("attendees",
			mcp.Description("Comma-separated attendee email addresses; an empty string removes all attendees"),
		),
		mcp.WithString("location",
			mcp.Description("New event location; an empty string clears it"),
		),
		mcp.WithString("description",
			mcp.Description("New event description; an empty string clears it"),
		),
		mcp.WithString("notification_minutes",
			mcp.Description("Comma-separated minutes before the event to send notifications"),
		),
		mcp.WithBoolean("email_enabled",
			mcp.Description("Enable or disable email notifications"),
		),
		mcp.WithString("status",
			mcp.Description("New status: pending, notified, completed, cancelled"),
		),
	)
	s.AddTool(updateReminderTool, common.InstrumentedToolHandler("update_reminder", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleUpdateReminder(ctx, request, sc)
		}))

	deleteReminderTool := mcp.NewTool("delete_reminder",
		mcp.WithDescription("Delete a reminder and its calendar event"),
		mcp.WithString("reminder_id",
			mcp.Required(),
			mcp.Description("The ID of the reminder to delete"),
		),
	)
	s.AddTool(deleteReminderTool, common.InstrumentedToolHandler("delete_reminder", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteReminder(ctx, request, sc)
		}))

	cancelReminderTool := mcp.NewTool("cancel_reminder",
		mcp.WithDescription("Cancel a reminder. No further notifications are sent for it."),
		mcp.WithString("reminder_id",
			mcp.Required(),
			mcp.Description("The ID of the reminder to cancel"),
		),
	)
	s.AddTool(cancelReminderTool, common.InstrumentedToolHandler("cancel_reminder", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleTransition(ctx, request, sc, sc.Manager().Cancel, "cancelled")
		}))

	completeReminderTool := mcp.NewTool("complete_reminder",
		mcp.WithDescription("Mark a notified reminder as completed"),
		mcp.WithString("reminder_id",
			mcp.Required(),
			mcp.Description("The ID of the reminder to complete"),
		),
	)
	s.AddTool(completeReminderTool, common.InstrumentedToolHandler("complete_reminder", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleTransition(ctx, request, sc, sc.Manager().Complete, "completed")
		}))

	syncTool := mcp.NewTool("sync_to_calendar",
		mcp.WithDescription("Sync reminders to Google Calendar. Without reminder_id every unsynced, non-cancelled reminder is synced."),
		mcp.WithString("reminder_id",
			mcp.Description("Sync only this reminder"),
		),
	)
	s.AddTool(syncTool, common.InstrumentedToolHandler("sync_to_calendar", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSyncToCalendar(ctx, request, sc)
		}))

	return nil
}

func handleCreateReminder(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	title, err := common.RequiredString(args, "title")
	if err != nil {
		return common.Failure(err.Error()), nil
	}
	datetimeStr, err := common.RequiredString(args, "datetime_str")
	if err != nil {
		return common.Failure(err.Error()), nil
	}
	start, err := parseEventTime(datetimeStr, sc.Location())
	if err != nil {
		return common.Failure(err.Error()), nil
	}

	in := lifecycle.CreateInput{
		Title: title,
		Start: start,
	}
	if in.Attendees, _, err = common.StringList(args, "attendees"); err != nil {
		return common.Failure(err.Error()), nil
	}
	in.Location, _ = common.OptionalString(args, "location")
	in.Description, _ = common.OptionalString(args, "description")
	if in.MinutesBefore, _, err = common.IntList(args, "notification_minutes"); err != nil {
		return common.Failure(err.Error()), nil
	}
	in.EmailEnabled = common.BoolPtr(args, "email_enabled")

	r, err := sc.Manager().Create(ctx, in)
	if err != nil {
		return common.FailureFromError("", err), nil
	}

	local := r.Event.Start.In(sc.Location())
	return common.Success(common.Response{
		"reminder_id": r.ID,
		"message": fmt.Sprintf("Reminder created successfully for '%s' on %s at %s",
			r.Event.Title, local.Format("2006-01-02"), local.Format("15:04")),
		"details": r,
	})
}

func handleGetReminder(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	id, err := common.RequiredString(request.GetArguments(), "reminder_id")
	if err != nil {
		return common.Failure(err.Error()), nil
	}

	r, err := sc.Manager().Get(ctx, id)
	if err != nil {
		return common.FailureFromError(id, err), nil
	}
	return common.Success(common.Response{"reminder": r})
}

func handleListReminders(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	loc := sc.Location()

	var filter lifecycle.ListFilter
	if s, ok := common.OptionalString(args, "start_date"); ok {
		from, err := parseRangeBound(s, loc, false)
		if err != nil {
			return common.Failure(err.Error()), nil
		}
		filter.From = &from
	}
	if s, ok := common.OptionalString(args, "end_date"); ok {
		to, err := parseRangeBound(s, loc, true)
		if err != nil {
			return common.Failure(err.Error()), nil
		}
		filter.To = &to
	}
	if s, ok := common.OptionalString(args, "status"); ok {
		status, err := reminder.ParseStatus(s)
		if err != nil {
			return common.Failure(err.Error()), nil
		}
		filter.Status = &status
	}

	reminders, err := sc.Manager().List(ctx, filter)
	if err != nil {
		return common.FailureFromError("", err), nil
	}
	return common.Success(common.Response{
		"count":     len(reminders),
		"reminders": reminders,
	})
}

func handleUpdateReminder(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	id, err := common.RequiredString(args, "reminder_id")
	if err != nil {
		return common.Failure(err.Error()), nil
	}

	var in lifecycle.UpdateInput
	if title, ok := common.OptionalString(args, "title"); ok {
		in.Title = &title
	}
	if s, ok := common.OptionalString(args, "datetime_str"); ok {
		start, err := parseEventTime(s, sc.Location())
		if err != nil {
			return common.Failure(err.Error()), nil
		}
		in.Start = &start
	}
	attendees, ok, err := common.StringList(args, "attendees")
	if err != nil {
		return common.Failure(err.Error()), nil
	}
	if ok {
		in.Attendees = &attendees
	}
	in.Location = common.StringPtr(args, "location")
	in.Description = common.StringPtr(args, "description")
	offsets, ok, err := common.IntList(args, "notification_minutes")
	if err != nil {
		return common.Failure(err.Error()), nil
	}
	if ok {
		in.MinutesBefore = &offsets
	}
	in.EmailEnabled = common.BoolPtr(args, "email_enabled")
	if s, ok := common.OptionalString(args, "status"); ok {
		status, err := reminder.ParseStatus(s)
		if err != nil {
			return common.Failure(err.Error()), nil
		}
		in.Status = &status
	}

	result, err := sc.Manager().Update(ctx, id, in)
	if err != nil {
		return common.FailureFromError(id, err), nil
	}
	return updateResponse(result, "Reminder updated successfully")
}

func handleDeleteReminder(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	id, err := common.RequiredString(request.GetArguments(), "reminder_id")
	if err != nil {
		return common.Failure(err.Error()), nil
	}

	r, err := sc.Manager().Delete(ctx, id)
	if err != nil {
		if reminder.IsExternalServiceError(err) {
			return common.Failure(fmt.Sprintf("Failed to delete from Google Calendar: %v", err)), nil
		}
		return common.FailureFromError(id, err), nil
	}
	return common.Success(common.Response{
		"message": fmt.Sprintf("Reminder '%s' deleted successfully", r.Event.Title),
	})
}

type transitionFunc func(ctx context.Context, id string) (*lifecycle.UpdateResult, error)

func handleTransition(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, transition transitionFunc, verb string) (*mcp.CallToolResult, error) {
	id, err := common.RequiredString(request.GetArguments(), "reminder_id")
	if err != nil {
		return common.Failure(err.Error()), nil
	}

	result, err := transition(ctx, id)
	if err != nil {
		return common.FailureFromError(id, err), nil
	}
	return updateResponse(result, fmt.Sprintf("Reminder '%s' %s", result.Reminder.Event.Title, verb))
}

func handleSyncToCalendar(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	id, _ := common.OptionalString(request.GetArguments(), "reminder_id")

	report, err := sc.Manager().Sync(ctx, id)
	if err != nil {
		return common.FailureFromError(id, err), nil
	}
	return common.Success(common.Response{
		"synced":  report.Synced,
		"failed":  report.Failed,
		"results": report.Results,
	})
}

func handleGetPendingNotifications(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	d := sc.Dispatcher()
	if d == nil {
		return common.Failure("Notification dispatcher is not configured"), nil
	}

	pending, err := d.PendingNotifications(ctx)
	if err != nil {
		return common.FailureFromError("", err), nil
	}
	return common.Success(common.Response{
		"count":         len(pending),
		"notifications": pending,
	})
}

func handleGetCurrentDatetime(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	now := sc.Manager().Now().In(sc.Location())
	zone, _ := now.Zone()
	return common.Success(common.Response{
		"current_datetime": now.Format("2006-01-02T15:04:05"),
		"current_date":     now.Format(reminder.DateLayout),
		"current_time":     now.Format("15:04:05"),
		"day_of_week":      now.Weekday().String(),
		"formatted":        now.Format(longDateTimeLayout),
		"timezone":         zone,
	})
}

func updateResponse(result *lifecycle.UpdateResult, message string) (*mcp.CallToolResult, error) {
	if result.Warning != "" {
		return common.Success(common.Response{
			"reminder": result.Reminder,
			"warning":  result.Warning,
		})
	}
	return common.Success(common.Response{
		"message":  message,
		"reminder": result.Reminder,
	})
}

func parseEventTime(s string, loc *time.Location) (time.Time, error) {
	t, err := reminder.ParseDateTime(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("Invalid datetime format: %v. Use ISO format like %s", err, datetimeExample)
	}
	return t, nil
}

// parseRangeBound accepts a full timestamp or a plain date. A plain date
// used as an upper bound covers the whole day.
func parseRangeBound(s string, loc *time.Location, upper bool) (time.Time, error) {
	if day, err := reminder.ParseDate(s, loc); err == nil {
		if upper {
			return day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}
		return day, nil
	}
	return parseEventTime(s, loc)
}
