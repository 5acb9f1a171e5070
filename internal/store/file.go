package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/teemow/calreminder/internal/logging"
	"github.com/teemow/calreminder/internal/reminder"
)

// FileCollection stores a collection as one indented JSON object in a file.
type FileCollection[T any] struct {
	name   string
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// NewFileCollection returns a collection backed by dir/<name>.json.
func NewFileCollection[T any](dir, name string, logger *slog.Logger) *FileCollection[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileCollection[T]{
		name:   name,
		path:   filepath.Join(dir, name+".json"),
		logger: logging.WithOperation(logger, "store.file").With(slog.String("collection", name)),
		now:    time.Now,
	}
}

func (c *FileCollection[T]) Name() string { return c.name }

// Path returns the backing file path.
func (c *FileCollection[T]) Path() string { return c.path }

// LoadAll reads the file. A missing or empty file is an empty collection.
// A file that does not decode is moved aside to <path>.corrupt-<unix> so that
// the next save cannot destroy it, and an empty collection is returned along
// with a decode StorageError. Any other failure is a read StorageError.
func (c *FileCollection[T]) LoadAll(_ context.Context) (map[string]T, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]T{}, nil
	}
	if err != nil {
		return map[string]T{}, &reminder.StorageError{Op: reminder.StorageOpRead, Collection: c.name, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]T{}, nil
	}

	items := map[string]T{}
	if err := json.Unmarshal(data, &items); err != nil {
		moved, qerr := c.quarantine()
		if qerr != nil {
			// The corrupt file is still in place; saving would destroy it.
			c.logger.Error("failed to move corrupt file aside", logging.Err(qerr))
			return map[string]T{}, &reminder.StorageError{Op: reminder.StorageOpRead, Collection: c.name, Err: errors.Join(err, qerr)}
		}
		c.logger.Warn("corrupt collection file moved aside", slog.String("moved_to", moved), logging.Err(err))
		return map[string]T{}, &reminder.StorageError{Op: reminder.StorageOpDecode, Collection: c.name, Err: err}
	}
	if items == nil {
		items = map[string]T{}
	}
	return items, nil
}

func (c *FileCollection[T]) quarantine() (string, error) {
	target := fmt.Sprintf("%s.corrupt-%d", c.path, c.now().Unix())
	if err := os.Rename(c.path, target); err != nil {
		return "", err
	}
	return target, nil
}

// SaveAll writes items to a temporary file in the same directory and renames
// it over the target, so readers see either the old or the new collection.
func (c *FileCollection[T]) SaveAll(_ context.Context, items map[string]T) error {
	if items == nil {
		items = map[string]T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return &reminder.StorageError{Op: reminder.StorageOpSave, Collection: c.name, Err: err}
	}
	if err := writeFileAtomic(c.path, data); err != nil {
		return &reminder.StorageError{Op: reminder.StorageOpSave, Collection: c.name, Err: err}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}
