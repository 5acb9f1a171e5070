package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/teemow/calreminder/internal/logging"
	"github.com/teemow/calreminder/internal/store"
)

// Email providers.
const (
	EmailProviderGmail    = "gmail"
	EmailProviderSendGrid = "sendgrid"
)

// Defaults.
const (
	DefaultSaveDir           = "reminders"
	DefaultSchedulerInterval = 5 * time.Minute
	DefaultCalendarID        = "primary"
	DefaultAccount           = "default"
	DefaultSendGridFromName  = "Calendar Reminder"
)

// Config is the process configuration. It is built once by Load, adjusted by
// command-line flags and then handed to constructors.
type Config struct {
	SaveDir           string
	SchedulerInterval time.Duration

	Storage StorageConfig
	Email   EmailConfig
	Google  GoogleConfig

	// Location is used for datetimes given without an offset.
	Location *time.Location

	LogLevel  string
	LogFormat string
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Type           string
	ValkeyAddr     string
	ValkeyPassword string
	ValkeyDB       int
	KeyPrefix      string
}

// EmailConfig controls notification delivery.
type EmailConfig struct {
	Enabled  bool
	Provider string
	// From is the default sender. With Gmail it defaults to the
	// authenticated account.
	From             string
	SendGridAPIKey   string
	SendGridFromName string
}

// GoogleConfig controls the Google OAuth client and calendar integration.
type GoogleConfig struct {
	Account         string
	ClientID        string
	ClientSecret    string
	CalendarEnabled bool
	CalendarID      string
}

// NeedsOAuth reports whether any enabled integration talks to Google APIs.
func (c *Config) NeedsOAuth() bool {
	return c.Google.CalendarEnabled || (c.Email.Enabled && c.Email.Provider == EmailProviderGmail)
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; variables already set in
// the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	interval, err := getEnvInt("SCHEDULER_INTERVAL_MINUTES", int(DefaultSchedulerInterval/time.Minute))
	if err != nil {
		return nil, err
	}
	valkeyDB, err := getEnvInt("VALKEY_DB", 0)
	if err != nil {
		return nil, err
	}

	loc := time.Local
	if tz := os.Getenv("TIMEZONE"); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
		}
	}

	cfg := &Config{
		SaveDir:           getEnv("SAVE_DIR", DefaultSaveDir),
		SchedulerInterval: time.Duration(interval) * time.Minute,
		Storage: StorageConfig{
			Type:           strings.ToLower(getEnv("STORAGE_TYPE", store.TypeFile)),
			ValkeyAddr:     os.Getenv("VALKEY_URL"),
			ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),
			ValkeyDB:       valkeyDB,
			KeyPrefix:      getEnv("VALKEY_KEY_PREFIX", store.DefaultValkeyKeyPrefix),
		},
		Email: EmailConfig{
			Enabled:          getEnvBool("EMAIL_ENABLED", true),
			Provider:         strings.ToLower(getEnv("EMAIL_PROVIDER", EmailProviderGmail)),
			From:             os.Getenv("EMAIL_FROM"),
			SendGridAPIKey:   os.Getenv("SENDGRID_API_KEY"),
			SendGridFromName: getEnv("SENDGRID_FROM_NAME", DefaultSendGridFromName),
		},
		Google: GoogleConfig{
			Account:         getEnv("GOOGLE_ACCOUNT", DefaultAccount),
			ClientID:        os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret:    os.Getenv("GOOGLE_CLIENT_SECRET"),
			CalendarEnabled: getEnvBool("GOOGLE_CALENDAR_ENABLED", false),
			CalendarID:      getEnv("GOOGLE_CALENDAR_ID", DefaultCalendarID),
		},
		Location:  loc,
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", logging.FormatText),
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistent settings.
func (c *Config) Validate() error {
	var errs []error

	if c.SchedulerInterval <= 0 {
		errs = append(errs, fmt.Errorf("scheduler interval must be positive, got %s", c.SchedulerInterval))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	switch c.Storage.Type {
	case store.TypeFile:
		if c.SaveDir == "" {
			errs = append(errs, errors.New("SAVE_DIR is required for file storage"))
		}
	case store.TypeMemory:
	case store.TypeValkey:
		if c.Storage.ValkeyAddr == "" {
			errs = append(errs, errors.New("VALKEY_URL is required for valkey storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage type %q (supported: file, memory, valkey)", c.Storage.Type))
	}

	if c.Email.Enabled {
		switch c.Email.Provider {
		case EmailProviderGmail:
		case EmailProviderSendGrid:
			if c.Email.SendGridAPIKey == "" {
				errs = append(errs, errors.New("SENDGRID_API_KEY is required for the sendgrid provider"))
			}
			if c.Email.From == "" {
				errs = append(errs, errors.New("EMAIL_FROM is required for the sendgrid provider"))
			}
		default:
			errs = append(errs, fmt.Errorf("unsupported email provider %q (supported: gmail, sendgrid)", c.Email.Provider))
		}
	}

	if c.Google.CalendarEnabled && c.Google.CalendarID == "" {
		errs = append(errs, errors.New("GOOGLE_CALENDAR_ID must not be empty when calendar sync is enabled"))
	}

	return errors.Join(errs...)
}

// StoreOptions maps the storage settings onto store.Options.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Type: c.Storage.Type,
		Dir:  c.SaveDir,
		Valkey: store.ValkeyOptions{
			Addr:      c.Storage.ValkeyAddr,
			Password:  c.Storage.ValkeyPassword,
			DB:        c.Storage.ValkeyDB,
			KeyPrefix: c.Storage.KeyPrefix,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return parsed, nil
}
