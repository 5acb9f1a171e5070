package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calreminder/internal/reminder"
)

func sampleReminders() map[string]*reminder.Reminder {
	start := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	created := start.Add(-48 * time.Hour)
	return map[string]*reminder.Reminder{
		"r1": {
			ID: "r1",
			Event: reminder.EventDetails{
				Title:       "Quarterly planning",
				Start:       start,
				Attendees:   []string{"ann@example.com", "bob@example.com"},
				Location:    "Room 4",
				Description: "Bring numbers",
			},
			Notifications:   reminder.NotificationSettings{MinutesBefore: []int{15, 60}, EmailEnabled: true},
			Status:          reminder.StatusNotified,
			CalendarSynced:  true,
			ExternalEventID: "evt-1",
			CreatedAt:       created,
			UpdatedAt:       created.Add(time.Hour),
		},
		"r2": {
			ID:            "r2",
			Event:         reminder.EventDetails{Title: "Dentist", Start: start.Add(24 * time.Hour), Attendees: []string{}},
			Notifications: reminder.NotificationSettings{MinutesBefore: []int{1440}, EmailEnabled: false},
			Status:        reminder.StatusPending,
			CreatedAt:     created,
			UpdatedAt:     created,
		},
	}
}

func assertSameReminder(t *testing.T, want, got *reminder.Reminder) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Event.Title, got.Event.Title)
	assert.True(t, want.Event.Start.Equal(got.Event.Start), "start %v != %v", want.Event.Start, got.Event.Start)
	assert.Equal(t, want.Event.Attendees, got.Event.Attendees)
	assert.Equal(t, want.Event.Location, got.Event.Location)
	assert.Equal(t, want.Event.Description, got.Event.Description)
	assert.Equal(t, want.Notifications, got.Notifications)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.CalendarSynced, got.CalendarSynced)
	assert.Equal(t, want.ExternalEventID, got.ExternalEventID)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created %v != %v", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updated %v != %v", want.UpdatedAt, got.UpdatedAt)
}

func TestFileCollection_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewFileCollection[*reminder.Reminder](t.TempDir(), RemindersCollection, nil)

	want := sampleReminders()
	require.NoError(t, c.SaveAll(ctx, want))

	first, err := c.LoadAll(ctx)
	require.NoError(t, err)
	require.NoError(t, c.SaveAll(ctx, first))

	second, err := c.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, second, len(want))
	for id, r := range want {
		assertSameReminder(t, r, second[id])
	}
}

func TestFileCollection_LedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewFileCollection[reminder.NotificationLogEntry](t.TempDir(), LedgerCollection, nil)

	at := time.Date(2025, 6, 15, 13, 30, 0, 0, time.UTC)
	want := reminder.Ledger{}
	want.Record(reminder.NotificationLogEntry{ReminderID: "r1", MinutesBefore: 60, NotificationTime: at, SentAt: at.Add(time.Minute), Success: true})
	want.Record(reminder.NotificationLogEntry{ReminderID: "r1", MinutesBefore: 15, NotificationTime: at.Add(45 * time.Minute), SentAt: at.Add(46 * time.Minute), ErrorMessage: "smtp down"})

	require.NoError(t, c.SaveAll(ctx, want))
	first, err := c.LoadAll(ctx)
	require.NoError(t, err)
	require.NoError(t, c.SaveAll(ctx, first))
	second, err := c.LoadAll(ctx)
	require.NoError(t, err)

	require.Len(t, second, len(want))
	for key, e := range want {
		got, ok := second[key]
		require.True(t, ok, key)
		assert.Equal(t, e.ReminderID, got.ReminderID)
		assert.Equal(t, e.MinutesBefore, got.MinutesBefore)
		assert.True(t, e.NotificationTime.Equal(got.NotificationTime))
		assert.True(t, e.SentAt.Equal(got.SentAt))
		assert.Equal(t, e.Success, got.Success)
		assert.Equal(t, e.ErrorMessage, got.ErrorMessage)
	}
}

func TestFileCollection_ReadFailureIsNotEmpty(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewFileCollection[*reminder.Reminder](dir, RemindersCollection, nil)

	// A directory where the file should be cannot be read as a collection.
	require.NoError(t, os.Mkdir(c.Path(), 0o755))

	_, err := c.LoadAll(ctx)
	require.Error(t, err)
	assert.True(t, reminder.IsReadError(err))

	info, statErr := os.Stat(c.Path())
	require.NoError(t, statErr)
	assert.True(t, info.IsDir(), "unreadable data must stay in place")
}

func TestFileCollection_EmptyRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewFileCollection[reminder.NotificationLogEntry](t.TempDir(), LedgerCollection, nil)

	require.NoError(t, c.SaveAll(ctx, map[string]reminder.NotificationLogEntry{}))
	got, err := c.LoadAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	require.NoError(t, c.SaveAll(ctx, nil))
	got, err = c.LoadAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFileCollection_MissingAndBlankFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewFileCollection[*reminder.Reminder](dir, RemindersCollection, nil)

	got, err := c.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, os.WriteFile(c.Path(), []byte("  \n"), 0o600))
	got, err = c.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileCollection_CorruptFileIsPreserved(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewFileCollection[*reminder.Reminder](dir, RemindersCollection, nil)
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.NoError(t, os.WriteFile(c.Path(), []byte(`{"r1": {"id": "r1", "status": `), 0o600))

	got, err := c.LoadAll(ctx)
	require.Error(t, err)
	assert.True(t, reminder.IsStorageError(err))
	assert.False(t, reminder.IsReadError(err), "a quarantined file is a decode failure")
	assert.NotNil(t, got)
	assert.Empty(t, got)

	moved := c.Path() + ".corrupt-1700000000"
	data, readErr := os.ReadFile(moved)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), `"r1"`)

	_, statErr := os.Stat(c.Path())
	assert.True(t, os.IsNotExist(statErr))

	// A later save starts a fresh file and leaves the quarantined copy alone.
	require.NoError(t, c.SaveAll(ctx, sampleReminders()))
	_, statErr = os.Stat(moved)
	assert.NoError(t, statErr)
}

func TestFileCollection_UnknownStatusIsCorrupt(t *testing.T) {
	ctx := context.Background()
	c := NewFileCollection[*reminder.Reminder](t.TempDir(), RemindersCollection, nil)
	require.NoError(t, os.WriteFile(c.Path(), []byte(`{"r1": {"id": "r1", "status": "archived"}}`), 0o600))

	got, err := c.LoadAll(ctx)
	assert.True(t, reminder.IsStorageError(err))
	assert.Empty(t, got)
}

func TestFileCollection_SaveLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "reminders")
	c := NewFileCollection[*reminder.Reminder](dir, RemindersCollection, nil)

	require.NoError(t, c.SaveAll(ctx, sampleReminders()))
	require.NoError(t, c.SaveAll(ctx, sampleReminders()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "reminders.json", entries[0].Name())
	assert.False(t, strings.Contains(entries[0].Name(), ".tmp-"))
}

func TestFileCollection_SaveFailureIsStorageError(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	// The data directory path runs through a regular file, so it cannot be created.
	c := NewFileCollection[*reminder.Reminder](filepath.Join(blocker, "sub"), RemindersCollection, nil)
	err := c.SaveAll(ctx, sampleReminders())
	require.Error(t, err)
	assert.True(t, reminder.IsStorageError(err))
}
