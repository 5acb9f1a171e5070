package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/valkey-io/valkey-go"

	"github.com/teemow/calreminder/internal/logging"
	"github.com/teemow/calreminder/internal/reminder"
)

// DefaultValkeyKeyPrefix is prepended to every key written by the valkey backend.
const DefaultValkeyKeyPrefix = "calreminder:"

// ValkeyOptions configures the valkey connection.
type ValkeyOptions struct {
	// Addr is the server address, e.g. "valkey.namespace.svc:6379".
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewValkeyClient connects to the server described by opts.
func NewValkeyClient(opts ValkeyOptions) (valkey.Client, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("valkey address is required for valkey storage")
	}
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{opts.Addr},
		Password:    opts.Password,
		SelectDB:    opts.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey at %s: %w", opts.Addr, err)
	}
	return client, nil
}

// ValkeyCollection stores a collection as one hash: field = record key,
// value = JSON-encoded record.
type ValkeyCollection[T any] struct {
	client valkey.Client
	name   string
	key    string
	logger *slog.Logger
}

// NewValkeyCollection returns a collection stored under prefix+name.
func NewValkeyCollection[T any](client valkey.Client, prefix, name string, logger *slog.Logger) *ValkeyCollection[T] {
	if prefix == "" {
		prefix = DefaultValkeyKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ValkeyCollection[T]{
		client: client,
		name:   name,
		key:    prefix + name,
		logger: logging.WithOperation(logger, "store.valkey").With(slog.String("collection", name)),
	}
}

func (c *ValkeyCollection[T]) Name() string { return c.name }

// LoadAll reads the hash. Records that do not decode are copied to the
// "<key>:corrupt" hash, left out of the result and reported together as one
// decode StorageError; the remaining records are still returned. When a
// record cannot be moved aside, or the hash cannot be read, the error is a
// read StorageError.
func (c *ValkeyCollection[T]) LoadAll(ctx context.Context) (map[string]T, error) {
	raw, err := c.client.Do(ctx, c.client.B().Hgetall().Key(c.key).Build()).AsStrMap()
	if err != nil && !valkey.IsValkeyNil(err) {
		return map[string]T{}, &reminder.StorageError{Op: reminder.StorageOpRead, Collection: c.name, Err: err}
	}

	items, decodeErr := decodeRecords[T](raw, func(field, value string) error {
		return c.quarantine(ctx, field, value)
	})
	if decodeErr != nil {
		decodeErr.Collection = c.name
		return items, decodeErr
	}
	return items, nil
}

// decodeRecords decodes raw hash values. Undecodable records are handed to
// quarantine and skipped.
func decodeRecords[T any](raw map[string]string, quarantine func(field, value string) error) (map[string]T, *reminder.StorageError) {
	items := make(map[string]T, len(raw))
	var decodeErrs, quarantineErrs []error
	for field, value := range raw {
		var v T
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			decodeErrs = append(decodeErrs, fmt.Errorf("record %s: %w", field, err))
			if qerr := quarantine(field, value); qerr != nil {
				quarantineErrs = append(quarantineErrs, fmt.Errorf("record %s: %w", field, qerr))
			}
			continue
		}
		items[field] = v
	}

	switch {
	case len(quarantineErrs) > 0:
		return items, &reminder.StorageError{Op: reminder.StorageOpRead, Err: errors.Join(append(decodeErrs, quarantineErrs...)...)}
	case len(decodeErrs) > 0:
		return items, &reminder.StorageError{Op: reminder.StorageOpDecode, Err: errors.Join(decodeErrs...)}
	}
	return items, nil
}

func (c *ValkeyCollection[T]) quarantine(ctx context.Context, field, value string) error {
	cmd := c.client.B().Hset().Key(c.key + ":corrupt").FieldValue().FieldValue(field, value).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		c.logger.Error("failed to preserve corrupt record", slog.String("field", field), logging.Err(err))
		return err
	}
	c.logger.Warn("corrupt record moved aside", slog.String("field", field))
	return nil
}

// encodeRecords returns the hash field values for items.
func encodeRecords[T any](items map[string]T) (map[string]string, error) {
	out := make(map[string]string, len(items))
	for field, v := range items {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", field, err)
		}
		out[field] = string(data)
	}
	return out, nil
}

// SaveAll replaces the hash inside a MULTI/EXEC transaction.
func (c *ValkeyCollection[T]) SaveAll(ctx context.Context, items map[string]T) error {
	cmds := make(valkey.Commands, 0, 4)
	cmds = append(cmds,
		c.client.B().Multi().Build(),
		c.client.B().Del().Key(c.key).Build(),
	)

	fields, err := encodeRecords(items)
	if err != nil {
		return &reminder.StorageError{Op: reminder.StorageOpSave, Collection: c.name, Err: err}
	}
	if len(fields) > 0 {
		hset := c.client.B().Hset().Key(c.key).FieldValue()
		for field, value := range fields {
			hset = hset.FieldValue(field, value)
		}
		cmds = append(cmds, hset.Build())
	}
	cmds = append(cmds, c.client.B().Exec().Build())

	for _, resp := range c.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return &reminder.StorageError{Op: reminder.StorageOpSave, Collection: c.name, Err: err}
		}
	}
	return nil
}
