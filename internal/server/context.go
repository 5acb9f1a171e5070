package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/calreminder/internal/instrumentation"
	"github.com/teemow/calreminder/internal/lifecycle"
	"github.com/teemow/calreminder/internal/scheduler"
)

// Deps are the collaborators shared by all MCP handlers.
type Deps struct {
	Manager    *lifecycle.Manager
	Dispatcher *scheduler.Dispatcher
	// Scheduler is set when the dispatch loop runs inside this process.
	Scheduler *scheduler.Scheduler
	Metrics   *instrumentation.Metrics
	Audit     *instrumentation.AuditLogger
	Logger    *slog.Logger
	// Location is the zone used for naive datetimes and for display.
	Location *time.Location
	// EmailProvider names the configured transport, empty when disabled.
	EmailProvider string
	ReadOnly      bool
}

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc
	deps   Deps

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context. The manager is required.
func NewServerContext(ctx context.Context, deps Deps) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Audit == nil {
		deps.Audit = instrumentation.NewAuditLogger(deps.Logger, false)
	}

	return &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		deps:   deps,
	}
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Manager returns the reminder lifecycle manager.
func (sc *ServerContext) Manager() *lifecycle.Manager {
	return sc.deps.Manager
}

// Dispatcher returns the notification dispatcher, nil when not configured.
func (sc *ServerContext) Dispatcher() *scheduler.Dispatcher {
	return sc.deps.Dispatcher
}

// Scheduler returns the in-process dispatch loop, nil when it runs elsewhere.
func (sc *ServerContext) Scheduler() *scheduler.Scheduler {
	return sc.deps.Scheduler
}

func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.deps.Metrics
}

func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.deps.Audit
}

func (sc *ServerContext) Logger() *slog.Logger {
	return sc.deps.Logger
}

func (sc *ServerContext) Location() *time.Location {
	return sc.deps.Location
}

func (sc *ServerContext) EmailProvider() string {
	return sc.deps.EmailProvider
}

// ReadOnly reports whether write tools are disabled.
func (sc *ServerContext) ReadOnly() bool {
	return sc.deps.ReadOnly
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown stops the in-process scheduler and cancels the server context.
// It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	if sc.deps.Scheduler != nil {
		sc.deps.Scheduler.Stop()
	}
	sc.cancel()
	return nil
}
