package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/calreminder/internal/instrumentation"
	"github.com/teemow/calreminder/internal/logging"
	"github.com/teemow/calreminder/internal/scheduler"
)

// GmailNotifier sends reminder emails through the Gmail API as the
// authenticated account.
type GmailNotifier struct {
	svc  *gmail.UsersService
	opts *options

	mu   sync.Mutex
	self string
}

// NewGmailNotifier creates a notifier. WithHTTPClient must supply an
// authorized client outside of tests.
func NewGmailNotifier(ctx context.Context, opts ...Option) (*GmailNotifier, error) {
	o := newOptions(opts)

	var apiOpts []option.ClientOption
	if o.httpClient != nil {
		apiOpts = append(apiOpts, option.WithHTTPClient(o.httpClient))
	}
	if o.endpoint != "" {
		apiOpts = append(apiOpts, option.WithEndpoint(o.endpoint))
	}

	svc, err := gmail.NewService(ctx, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	o.logger = logging.WithService(o.logger, instrumentation.ServiceGmail)
	return &GmailNotifier{svc: svc.Users, opts: o}, nil
}

// Send delivers n. Without recipients the email goes to the account itself.
func (g *GmailNotifier) Send(ctx context.Context, n scheduler.Notification) error {
	return instrumented(ctx, g.opts, instrumentation.ServiceGmail, instrumentation.OperationSend, &n, func(ctx context.Context) error {
		to := n.Recipients
		if len(to) == 0 {
			self, err := g.selfAddress(ctx)
			if err != nil {
				return err
			}
			to = []string{self}
		}

		msg, err := Compose(n, to, g.opts.location)
		if err != nil {
			return err
		}
		msg.From = g.opts.from

		raw, err := msg.Raw()
		if err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}

		sent, err := g.svc.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		g.opts.logger.Info("reminder email sent", logging.Recipients(to), logging.ReminderID(n.Reminder.ID),
			logging.Offset(n.Offset), slog.String("message_id", sent.Id))
		return nil
	})
}

// Check verifies the credentials by reading the account profile.
func (g *GmailNotifier) Check(ctx context.Context) error {
	return instrumented(ctx, g.opts, instrumentation.ServiceGmail, "check", nil, func(ctx context.Context) error {
		_, err := g.selfAddress(ctx)
		return err
	})
}

func (g *GmailNotifier) selfAddress(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.self != "" {
		return g.self, nil
	}

	profile, err := g.svc.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to read Gmail profile: %w", err)
	}
	if profile.EmailAddress == "" {
		return "", fmt.Errorf("gmail profile has no email address")
	}
	g.self = profile.EmailAddress
	return g.self, nil
}
