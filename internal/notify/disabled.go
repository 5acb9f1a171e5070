package notify

import (
	"context"
	"errors"

	"github.com/teemow/calreminder/internal/scheduler"
)

// ErrDisabled is returned by DisabledNotifier.
var ErrDisabled = errors.New("email notifications are disabled")

// DisabledNotifier fails every delivery. The attempts are still recorded in
// the notification ledger, so enabling email later does not resend them.
type DisabledNotifier struct{}

// Send always returns ErrDisabled.
func (DisabledNotifier) Send(context.Context, scheduler.Notification) error {
	return ErrDisabled
}

// Check always returns ErrDisabled.
func (DisabledNotifier) Check(context.Context) error {
	return ErrDisabled
}
