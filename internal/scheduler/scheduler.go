package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/teemow/calreminder/internal/logging"
)

// DefaultInterval is the time between two ticks.
const DefaultInterval = 5 * time.Minute

// Ticker runs one dispatch cycle.
type Ticker interface {
	Tick(ctx context.Context) (*TickReport, error)
}

// Scheduler drives a Ticker on a fixed interval.
//
// Ticks never overlap: the cron job is wrapped with SkipIfStillRunning and
// RunOnce shares the same guard. A panicking tick is recovered and logged and
// the timer keeps running.
type Scheduler struct {
	ticker   Ticker
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	running bool

	tickMu sync.Mutex
}

// NewScheduler creates a stopped scheduler. A non-positive interval means
// DefaultInterval.
func NewScheduler(ticker Ticker, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		ticker:   ticker,
		interval: interval,
		logger:   logger.With(slog.String("component", "scheduler")),
	}
}

// Interval returns the time between two ticks.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start schedules the ticker. The first tick runs one interval after Start.
// ctx bounds every tick; cancelling it does not stop the timer, Stop does.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler is already running")
	}

	adapter := logging.NewSlogAdapter(s.logger)
	c := cron.New(
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), s.runJob); err != nil {
		return fmt.Errorf("failed to schedule ticks every %s: %w", s.interval, err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = c
	s.running = true
	c.Start()

	s.logger.Info("scheduler started", slog.Duration("interval", s.interval))
	return nil
}

// Stop stops the timer and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	c, cancel := s.cron, s.cancel
	s.running = false
	s.mu.Unlock()

	<-c.Stop().Done()
	cancel()
	s.logger.Info("scheduler stopped")
}

// Running reports whether the timer is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunOnce runs a single tick immediately, waiting for a scheduled tick that
// is in flight. Panics are returned as errors.
func (s *Scheduler) RunOnce(ctx context.Context) (report *TickReport, err error) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("scheduler tick panicked: %v", p)
			s.logger.Error("scheduler tick panicked", logging.Err(err))
		}
	}()
	return s.ticker.Tick(ctx)
}

func (s *Scheduler) runJob() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("scheduler tick failed", logging.Err(err))
	}
}
