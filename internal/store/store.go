package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teemow/calreminder/internal/reminder"
)

// Collection names. The file backend appends ".json".
const (
	RemindersCollection = "reminders"
	LedgerCollection    = "notification_log"
)

// Storage backend types.
const (
	TypeFile   = "file"
	TypeMemory = "memory"
	TypeValkey = "valkey"
)

// Collection is a keyed set of records that is always read and written whole.
//
// LoadAll never returns a nil map. When the persisted data cannot be decoded
// the returned map holds whatever could be recovered (possibly nothing) and
// the error is a *reminder.StorageError; callers may log it and carry on.
// SaveAll replaces the persisted collection with items.
type Collection[T any] interface {
	Name() string
	LoadAll(ctx context.Context) (map[string]T, error)
	SaveAll(ctx context.Context, items map[string]T) error
}

// ReminderStore persists reminders keyed by id.
type ReminderStore = Collection[*reminder.Reminder]

// LedgerStore persists notification log entries keyed by ledger key.
type LedgerStore = Collection[reminder.NotificationLogEntry]

// Options selects and configures a backend.
type Options struct {
	Type   string
	Dir    string
	Valkey ValkeyOptions
}

// Backend bundles the two collections of one storage backend.
type Backend struct {
	Reminders ReminderStore
	Ledger    LedgerStore
	closeFn   func()
}

// Close releases backend resources.
func (b *Backend) Close() {
	if b.closeFn != nil {
		b.closeFn()
	}
}

// Open creates the backend described by opts.
func Open(opts Options, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Type {
	case "", TypeFile:
		return &Backend{
			Reminders: NewFileCollection[*reminder.Reminder](opts.Dir, RemindersCollection, logger),
			Ledger:    NewFileCollection[reminder.NotificationLogEntry](opts.Dir, LedgerCollection, logger),
		}, nil
	case TypeMemory:
		return &Backend{
			Reminders: NewMemoryCollection[*reminder.Reminder](RemindersCollection),
			Ledger:    NewMemoryCollection[reminder.NotificationLogEntry](LedgerCollection),
		}, nil
	case TypeValkey:
		client, err := NewValkeyClient(opts.Valkey)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Reminders: NewValkeyCollection[*reminder.Reminder](client, opts.Valkey.KeyPrefix, RemindersCollection, logger),
			Ledger:    NewValkeyCollection[reminder.NotificationLogEntry](client, opts.Valkey.KeyPrefix, LedgerCollection, logger),
			closeFn:   client.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q (supported: file, memory, valkey)", opts.Type)
	}
}
