package resources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calreminder/internal/lifecycle"
	"github.com/teemow/calreminder/internal/reminder"
	"github.com/teemow/calreminder/internal/server"
)

const (
	markdownMIMEType = "text/markdown"
	uriScheme        = "reminders://"

	// UpcomingWindow is how far ahead reminders://upcoming looks.
	UpcomingWindow = 7 * 24 * time.Hour

	dateTimeLayout = "Monday, January 02, 2006 at 03:04 PM"
	dayLayout      = "Monday, January 02, 2006"
	createdLayout  = "2006-01-02 15:04"
)

// RegisterReminderResources registers the reminder resources and the
// per-day resource template.
func RegisterReminderResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc.Manager() == nil {
		return fmt.Errorf("reminder resources require a lifecycle manager")
	}

	allResource := mcp.NewResource(
		uriScheme+"all",
		"All Reminders",
		mcp.WithResourceDescription("Every reminder grouped by status"),
		mcp.WithMIMEType(markdownMIMEType),
	)
	s.AddResource(allResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleAllReminders(ctx, request, sc)
	})

	upcomingResource := mcp.NewResource(
		uriScheme+"upcoming",
		"Upcoming Reminders",
		mcp.WithResourceDescription("Pending and notified reminders in the next 7 days"),
		mcp.WithMIMEType(markdownMIMEType),
	)
	s.AddResource(upcomingResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleUpcomingReminders(ctx, request, sc)
	})

	byDate := mcp.NewResourceTemplate(
		uriScheme+"{date}",
		"Reminders by Date",
		mcp.WithTemplateDescription("Reminders for a specific day (YYYY-MM-DD)"),
		mcp.WithTemplateMIMEType(markdownMIMEType),
	)
	s.AddResourceTemplate(byDate, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleRemindersByDate(ctx, request, sc)
	})

	return nil
}

func handleAllReminders(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	all, err := sc.Manager().List(ctx, lifecycle.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return markdown(request, RenderAll(all, sc.Location())), nil
}

func handleUpcomingReminders(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	from := sc.Manager().Now()
	to := from.Add(UpcomingWindow)
	inWindow, err := sc.Manager().List(ctx, lifecycle.ListFilter{From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}

	upcoming := make([]*reminder.Reminder, 0, len(inWindow))
	for _, r := range inWindow {
		if r.Status.IsActive() {
			upcoming = append(upcoming, r)
		}
	}
	return markdown(request, RenderUpcoming(upcoming, sc.Location())), nil
}

func handleRemindersByDate(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	raw := strings.TrimPrefix(request.Params.URI, uriScheme)
	day, err := reminder.ParseDate(raw, sc.Location())
	if err != nil {
		return markdown(request, fmt.Sprintf("# Error\n\nInvalid date format: %s. Use YYYY-MM-DD format.", raw)), nil
	}

	end := day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	matching, err := sc.Manager().List(ctx, lifecycle.ListFilter{From: &day, To: &end})
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return markdown(request, RenderDay(day, matching, sc.Location())), nil
}

func markdown(request mcp.ReadResourceRequest, text string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: markdownMIMEType,
			Text:     text,
		},
	}
}

// RenderAll renders reminders grouped by status in lifecycle order. The
// input is expected to be sorted by event start.
func RenderAll(reminders []*reminder.Reminder, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("# All Reminders\n\n")
	fmt.Fprintf(&b, "Total reminders: %d\n\n", len(reminders))

	if len(reminders) == 0 {
		b.WriteString("No reminders found.\n")
		return b.String()
	}

	byStatus := make(map[reminder.Status][]*reminder.Reminder)
	for _, r := range reminders {
		byStatus[r.Status] = append(byStatus[r.Status], r)
	}
	for _, status := range reminder.AllStatuses {
		group := byStatus[status]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s (%d)\n\n", statusTitle(status), len(group))
		writeEntries(&b, group, loc)
	}
	return b.String()
}

// RenderUpcoming renders the upcoming reminders list.
func RenderUpcoming(reminders []*reminder.Reminder, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("# Upcoming Reminders (Next 7 Days)\n\n")
	fmt.Fprintf(&b, "Found %d upcoming reminder(s)\n\n", len(reminders))

	if len(reminders) == 0 {
		b.WriteString("No upcoming reminders.\n")
		return b.String()
	}
	writeEntries(&b, reminders, loc)
	return b.String()
}

// RenderDay renders the reminders of a single day.
func RenderDay(day time.Time, reminders []*reminder.Reminder, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Reminders for %s\n\n", day.Format(dayLayout))
	fmt.Fprintf(&b, "Found %d reminder(s)\n\n", len(reminders))

	if len(reminders) == 0 {
		b.WriteString("No reminders for this date.\n")
		return b.String()
	}
	writeEntries(&b, reminders, loc)
	return b.String()
}

func writeEntries(b *strings.Builder, reminders []*reminder.Reminder, loc *time.Location) {
	for _, r := range reminders {
		writeEntry(b, r, loc)
		b.WriteString("\n---\n\n")
	}
}

func writeEntry(b *strings.Builder, r *reminder.Reminder, loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	e := r.Event

	fmt.Fprintf(b, "### %s\n\n", e.Title)
	fmt.Fprintf(b, "- **ID**: `%s`\n", r.ID)
	fmt.Fprintf(b, "- **Date & Time**: %s\n", e.Start.In(loc).Format(dateTimeLayout))
	fmt.Fprintf(b, "- **Status**: %s\n", statusTitle(r.Status))
	if e.Location != "" {
		fmt.Fprintf(b, "- **Location**: %s\n", e.Location)
	}
	if len(e.Attendees) > 0 {
		fmt.Fprintf(b, "- **Attendees**: %s\n", strings.Join(e.Attendees, ", "))
	}
	if r.CalendarSynced {
		b.WriteString("- **Synced to Calendar**: ✓ Yes\n")
	}
	if e.Description != "" {
		fmt.Fprintf(b, "\n**Description**: %s\n", e.Description)
	}
	fmt.Fprintf(b, "\n*Created: %s*\n", r.CreatedAt.In(loc).Format(createdLayout))
}

func statusTitle(s reminder.Status) string {
	str := s.String()
	if str == "" {
		return str
	}
	return strings.ToUpper(str[:1]) + str[1:]
}
