package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calreminder/internal/reminder"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name        string
		opts        Options
		expectError bool
		errContains string
	}{
		{name: "default is file", opts: Options{Dir: t.TempDir()}},
		{name: "file", opts: Options{Type: TypeFile, Dir: t.TempDir()}},
		{name: "memory", opts: Options{Type: TypeMemory}},
		{name: "valkey without address", opts: Options{Type: TypeValkey}, expectError: true, errContains: "valkey address is required"},
		{name: "unknown", opts: Options{Type: "sqlite"}, expectError: true, errContains: "unsupported storage type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Open(tt.opts, nil)
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			defer b.Close()
			assert.Equal(t, RemindersCollection, b.Reminders.Name())
			assert.Equal(t, LedgerCollection, b.Ledger.Name())
		})
	}
}

func TestMemoryCollection_LoadsAreIndependentCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCollection[*reminder.Reminder](RemindersCollection)

	got, err := c.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, c.SaveAll(ctx, sampleReminders()))
	assert.Equal(t, 1, c.Saves())

	first, err := c.LoadAll(ctx)
	require.NoError(t, err)
	first["r1"].Event.Title = "changed"
	first["r1"].Event.Attendees[0] = "changed@example.com"

	second, err := c.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly planning", second["r1"].Event.Title)
	assert.Equal(t, "ann@example.com", second["r1"].Event.Attendees[0])
}

func TestMemoryCollection_NilSave(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCollection[reminder.NotificationLogEntry](LedgerCollection)
	require.NoError(t, c.SaveAll(ctx, nil))

	got, err := c.LoadAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDecodeRecords(t *testing.T) {
	good, err := json.Marshal(sampleReminders()["r1"])
	require.NoError(t, err)

	raw := map[string]string{
		"r1": string(good),
		"r2": `{"id": "r2", "status": `,
		"r3": `{"id": "r3", "status": "archived"}`,
	}

	t.Run("undecodable records are moved aside", func(t *testing.T) {
		quarantined := map[string]string{}
		items, serr := decodeRecords[*reminder.Reminder](raw, func(field, value string) error {
			quarantined[field] = value
			return nil
		})

		require.NotNil(t, serr)
		assert.Equal(t, reminder.StorageOpDecode, serr.Op)
		assert.False(t, reminder.IsReadError(serr))
		require.Len(t, items, 1)
		assertSameReminder(t, sampleReminders()["r1"], items["r1"])
		assert.Equal(t, map[string]string{"r2": raw["r2"], "r3": raw["r3"]}, quarantined)
	})

	t.Run("failed move aside is a read error", func(t *testing.T) {
		_, serr := decodeRecords[*reminder.Reminder](raw, func(string, string) error {
			return errors.New("connection reset")
		})

		require.NotNil(t, serr)
		assert.True(t, reminder.IsReadError(serr))
		assert.Contains(t, serr.Error(), "connection reset")
	})

	t.Run("clean hash", func(t *testing.T) {
		items, serr := decodeRecords[*reminder.Reminder](map[string]string{"r1": string(good)}, func(string, string) error {
			t.Fatal("nothing should be quarantined")
			return nil
		})
		assert.Nil(t, serr)
		assert.Len(t, items, 1)
	})
}

func TestEncodeRecords(t *testing.T) {
	want := sampleReminders()
	fields, err := encodeRecords(want)
	require.NoError(t, err)
	require.Len(t, fields, len(want))

	items, serr := decodeRecords[*reminder.Reminder](fields, func(string, string) error {
		t.Fatal("encoded records must decode")
		return nil
	})
	require.Nil(t, serr)
	for id, r := range want {
		assertSameReminder(t, r, items[id])
	}

	empty, err := encodeRecords(map[string]*reminder.Reminder{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// TestValkeyCollection_RoundTrip runs against a real server when VALKEY_TEST_ADDR is set.
func TestValkeyCollection_RoundTrip(t *testing.T) {
	addr := os.Getenv("VALKEY_TEST_ADDR")
	if addr == "" {
		t.Skip("VALKEY_TEST_ADDR not set")
	}

	ctx := context.Background()
	client, err := NewValkeyClient(ValkeyOptions{Addr: addr})
	require.NoError(t, err)
	defer client.Close()

	prefix := "calreminder-test:" + t.Name() + ":"
	c := NewValkeyCollection[*reminder.Reminder](client, prefix, RemindersCollection, nil)

	require.NoError(t, c.SaveAll(ctx, sampleReminders()))
	got, err := c.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "evt-1", got["r1"].ExternalEventID)

	require.NoError(t, c.SaveAll(ctx, map[string]*reminder.Reminder{}))
	got, err = c.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}
