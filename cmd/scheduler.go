package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/calreminder/internal/logging"
	"github.com/teemow/calreminder/internal/scheduler"
)

func newSchedulerCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Run the notification dispatch loop",
		Long: `Run the notification dispatch loop until interrupted.

On start the pending notifications are listed and the email transport is
checked. Notifications are then evaluated every SCHEDULER_INTERVAL_MINUTES.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduler(cmd.OutOrStdout(), metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (disabled when empty)")
	return cmd
}

func newPendingCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List notifications that have not been sent yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setupApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			pending, err := a.dispatcher.PendingNotifications(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), pending)
			}
			printPending(cmd.OutOrStdout(), pending, a.cfg.Location)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newTickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run a single dispatch tick and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setupApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			report, err := a.dispatcher.Tick(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
}

func setupApp(ctx context.Context) (*app, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, os.Stderr)
}

func runScheduler(out io.Writer, metricsAddr string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	logger := a.logger

	if metricsAddr != "" {
		metricsServer, err := startMetricsServer(serveOptions{
			transport:      transportStreamableHTTP,
			metricsEnabled: true,
			metricsAddr:    metricsAddr,
		}, a)
		if err != nil {
			return err
		}
		if metricsServer != nil {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := metricsServer.Shutdown(shutdownCtx); err != nil {
					logger.Warn("error during metrics server shutdown", logging.Err(err))
				}
			}()
		}
	}

	pending, err := a.dispatcher.PendingNotifications(ctx)
	if err != nil {
		return err
	}
	printPending(out, pending, a.cfg.Location)

	if a.emailProvider == "" {
		logger.Warn("email notifications are disabled; due notifications are recorded but not delivered")
	} else if err := a.dispatcher.CheckNotifier(ctx); err != nil {
		// Delivery may recover later; keep running.
		logger.Error("email transport check failed", logging.Service(a.emailProvider), logging.Err(err))
	} else {
		logger.Info("email transport ready", logging.Service(a.emailProvider))
	}

	sched := scheduler.NewScheduler(a.dispatcher, a.cfg.SchedulerInterval, logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "Scheduler running every %s. Press Ctrl+C to stop.\n", sched.Interval())

	<-ctx.Done()
	sched.Stop()
	return nil
}

func printPending(out io.Writer, pending []scheduler.PendingNotification, loc *time.Location) {
	if len(pending) == 0 {
		fmt.Fprintln(out, "No pending notifications.")
		return
	}

	fmt.Fprintf(out, "Pending notifications (%d):\n", len(pending))
	for _, p := range pending {
		marker := " "
		if p.Due {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s  %-6d %s (event %s)\n",
			marker,
			p.NotifyAt.In(loc).Format("2006-01-02 15:04"),
			p.Offset,
			p.Title,
			p.EventTime.In(loc).Format("2006-01-02 15:04"))
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
