package notify

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/teemow/calreminder/internal/instrumentation"
)

// Option configures a notifier.
type Option func(*options)

type options struct {
	httpClient *http.Client
	endpoint   string
	from       string
	fromName   string
	location   *time.Location
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.location == nil {
		o.location = time.Local
	}
	return o
}

// WithHTTPClient sets the HTTP client used for API calls. For Gmail it
// must carry the OAuth credentials.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithEndpoint overrides the provider's API base URL.
func WithEndpoint(url string) Option {
	return func(o *options) { o.endpoint = url }
}

// WithFrom sets the sender address and display name.
func WithFrom(address, name string) Option {
	return func(o *options) {
		o.from = address
		o.fromName = name
	}
}

// WithLocation sets the zone event times are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.location = loc }
}

// WithMetrics records provider calls.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}
