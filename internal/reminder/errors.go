package reminder

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a reminder id does not exist in the store.
	ErrNotFound = errors.New("reminder not found")

	// ErrCalendarDisabled is returned by calendar operations when no calendar
	// integration is configured.
	ErrCalendarDisabled = errors.New("calendar integration is disabled")
)

// NotFound wraps ErrNotFound with the offending id.
func NotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// ValidationError reports caller input that was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Storage operations reported by StorageError.
const (
	// StorageOpRead means the collection could not be read at all. The
	// persisted data may be intact and must not be overwritten.
	StorageOpRead = "read"
	// StorageOpDecode means the data was read but did not decode. The
	// undecodable data has been moved aside.
	StorageOpDecode = "decode"
	StorageOpSave   = "save"
)

// StorageError reports a failure to load or persist a collection.
type StorageError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ExternalServiceError reports a failure in the calendar or email collaborator.
type ExternalServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Service, e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStorageError reports whether err is or wraps a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsReadError reports whether err is a StorageError for a collection that
// could not be read. Callers must not save over such a collection.
func IsReadError(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Op == StorageOpRead
}

// IsExternalServiceError reports whether err is or wraps an ExternalServiceError.
func IsExternalServiceError(err error) bool {
	var ee *ExternalServiceError
	return errors.As(err, &ee)
}
