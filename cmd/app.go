package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/teemow/calreminder/internal/calendar"
	"github.com/teemow/calreminder/internal/config"
	"github.com/teemow/calreminder/internal/google"
	"github.com/teemow/calreminder/internal/instrumentation"
	"github.com/teemow/calreminder/internal/lifecycle"
	"github.com/teemow/calreminder/internal/logging"
	"github.com/teemow/calreminder/internal/notify"
	"github.com/teemow/calreminder/internal/scheduler"
	"github.com/teemow/calreminder/internal/store"
)

// app holds the collaborators shared by all commands. Everything is built
// from one validated Config.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider *instrumentation.Provider
	backend  *store.Backend

	manager    *lifecycle.Manager
	dispatcher *scheduler.Dispatcher
	// emailProvider is empty when email delivery is disabled.
	emailProvider string
}

// loadConfig reads the environment and validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newApp wires storage, the calendar client, the notifier, the lifecycle
// manager and the dispatcher. Logs go to logOut.
func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	logger, err := logging.NewLogger(logOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	metrics := provider.Metrics()

	a := &app{cfg: cfg, logger: logger, provider: provider}

	a.backend, err = store.Open(cfg.StoreOptions(), logger)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Type, err)
	}

	var googleClient *http.Client
	if cfg.NeedsOAuth() {
		googleClient, err = googleHTTPClient(ctx, cfg)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
	}

	// One lock for both writers: tool calls and scheduler ticks in the
	// same process must not interleave their load/save cycles.
	locker := &sync.Mutex{}

	managerOpts := lifecycle.Options{Logger: logger, Metrics: metrics, Locker: locker}
	if cfg.Google.CalendarEnabled {
		cal, err := calendar.NewClient(ctx, cfg.Google.CalendarID,
			calendar.WithHTTPClient(googleClient),
			calendar.WithMetrics(metrics),
			calendar.WithLogger(logger),
		)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("failed to create calendar client: %w", err)
		}
		managerOpts.Calendar = cal
	}
	a.manager = lifecycle.NewManager(a.backend.Reminders, managerOpts)

	notifier, providerName, err := newNotifier(ctx, cfg, googleClient, metrics, logger)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.emailProvider = providerName
	a.dispatcher = scheduler.NewDispatcher(a.backend.Reminders, a.backend.Ledger, notifier, scheduler.DispatcherOptions{
		DefaultRecipient: cfg.Email.From,
		Logger:           logger,
		Metrics:          metrics,
		Locker:           locker,
	})

	logger.Debug("application wired",
		slog.String("storage", cfg.Storage.Type),
		slog.Bool("calendar", cfg.Google.CalendarEnabled),
		slog.String("email_provider", providerName))
	return a, nil
}

// Close releases the storage backend and flushes telemetry.
func (a *app) Close(ctx context.Context) {
	if a.backend != nil {
		a.backend.Close()
	}
	if a.provider != nil {
		if err := a.provider.Shutdown(ctx); err != nil {
			a.logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}
}

func googleHTTPClient(ctx context.Context, cfg *config.Config) (*http.Client, error) {
	auth, err := google.NewAuthenticator(cfg.Google.ClientID, cfg.Google.ClientSecret, "")
	if err != nil {
		return nil, err
	}
	client, err := google.NewHTTPClient(ctx, auth, cfg.Google.Account)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}
	return client, nil
}

// newNotifier returns the configured email transport and its name.
func newNotifier(ctx context.Context, cfg *config.Config, googleClient *http.Client, metrics *instrumentation.Metrics, logger *slog.Logger) (scheduler.Notifier, string, error) {
	if !cfg.Email.Enabled {
		return notify.DisabledNotifier{}, "", nil
	}

	common := []notify.Option{
		notify.WithLocation(cfg.Location),
		notify.WithMetrics(metrics),
		notify.WithLogger(logger),
	}

	switch cfg.Email.Provider {
	case config.EmailProviderGmail:
		opts := append(common,
			notify.WithHTTPClient(googleClient),
			notify.WithFrom(cfg.Email.From, ""),
		)
		n, err := notify.NewGmailNotifier(ctx, opts...)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create Gmail notifier: %w", err)
		}
		return n, config.EmailProviderGmail, nil
	case config.EmailProviderSendGrid:
		opts := append(common, notify.WithFrom(cfg.Email.From, cfg.Email.SendGridFromName))
		n, err := notify.NewSendGridNotifier(cfg.Email.SendGridAPIKey, opts...)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create SendGrid notifier: %w", err)
		}
		return n, config.EmailProviderSendGrid, nil
	default:
		return nil, "", fmt.Errorf("unsupported email provider %q", cfg.Email.Provider)
	}
}
