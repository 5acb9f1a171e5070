package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/teemow/calreminder/internal/reminder"
)

// MemoryCollection keeps a collection in process memory. Records are stored
// in encoded form, so loads always hand out fresh copies exactly like the
// persistent backends do.
type MemoryCollection[T any] struct {
	name  string
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewMemoryCollection returns an empty in-memory collection.
func NewMemoryCollection[T any](name string) *MemoryCollection[T] {
	return &MemoryCollection[T]{name: name}
}

func (c *MemoryCollection[T]) Name() string { return c.name }

func (c *MemoryCollection[T]) LoadAll(_ context.Context) (map[string]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := map[string]T{}
	if len(c.data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(c.data, &items); err != nil {
		return map[string]T{}, &reminder.StorageError{Op: reminder.StorageOpDecode, Collection: c.name, Err: err}
	}
	return items, nil
}

func (c *MemoryCollection[T]) SaveAll(_ context.Context, items map[string]T) error {
	if items == nil {
		items = map[string]T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return &reminder.StorageError{Op: reminder.StorageOpSave, Collection: c.name, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.saves++
	return nil
}

// Saves returns how many times SaveAll succeeded.
func (c *MemoryCollection[T]) Saves() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}
