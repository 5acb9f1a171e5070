// Package calendar mirrors reminders as Google Calendar events.
//
// Each reminder becomes a one-hour event in UTC whose popup reminders are
// replaced by email reminders at the reminder's notification offsets.
//
// Example usage:
//
//	httpClient, err := auth.HTTPClient(ctx, "default")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := calendar.NewClient(ctx, "primary", calendar.WithHTTPClient(httpClient))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	eventID, err := client.CreateEvent(ctx, r)
package calendar
