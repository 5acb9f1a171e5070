package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/teemow/calreminder/internal/instrumentation"
	"github.com/teemow/calreminder/internal/logging"
	"github.com/teemow/calreminder/internal/scheduler"
)

const (
	sendGridSendPath   = "/v3/mail/send"
	sendGridScopesPath = "/v3/scopes"
)

// SendGridNotifier sends reminder emails through the SendGrid v3 API.
type SendGridNotifier struct {
	apiKey string
	opts   *options
}

// NewSendGridNotifier creates a notifier. WithFrom is required; it is also
// the recipient when a notification has none.
func NewSendGridNotifier(apiKey string, opts ...Option) (*SendGridNotifier, error) {
	if apiKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	o := newOptions(opts)
	if o.from == "" {
		return nil, errors.New("sendgrid sender address is required")
	}
	o.logger = logging.WithService(o.logger, instrumentation.ServiceSendGrid)
	return &SendGridNotifier{apiKey: apiKey, opts: o}, nil
}

// Send delivers n as a single email addressed to all recipients.
func (s *SendGridNotifier) Send(ctx context.Context, n scheduler.Notification) error {
	return instrumented(ctx, s.opts, instrumentation.ServiceSendGrid, instrumentation.OperationSend, &n, func(ctx context.Context) error {
		to := n.Recipients
		if len(to) == 0 {
			to = []string{s.opts.from}
		}

		msg, err := Compose(n, to, s.opts.location)
		if err != nil {
			return err
		}

		m := mail.NewV3Mail()
		m.SetFrom(mail.NewEmail(s.opts.fromName, s.opts.from))
		m.Subject = msg.Subject

		p := mail.NewPersonalization()
		for _, addr := range msg.To {
			p.AddTos(mail.NewEmail("", addr))
		}
		m.AddPersonalizations(p)
		m.AddContent(mail.NewContent("text/plain", msg.Text), mail.NewContent("text/html", msg.HTML))

		request := s.request(sendGridSendPath)
		request.Method = rest.Post
		request.Body = mail.GetRequestBody(m)

		if err := s.do(ctx, request); err != nil {
			return err
		}
		s.opts.logger.Info("reminder email sent", logging.Recipients(to), logging.ReminderID(n.Reminder.ID),
			logging.Offset(n.Offset))
		return nil
	})
}

// Check verifies the API key by listing its scopes.
func (s *SendGridNotifier) Check(ctx context.Context) error {
	return instrumented(ctx, s.opts, instrumentation.ServiceSendGrid, "check", nil, func(ctx context.Context) error {
		request := s.request(sendGridScopesPath)
		request.Method = rest.Get
		return s.do(ctx, request)
	})
}

func (s *SendGridNotifier) request(path string) rest.Request {
	return sendgrid.GetRequest(s.apiKey, path, s.opts.endpoint)
}

func (s *SendGridNotifier) do(ctx context.Context, request rest.Request) error {
	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}
