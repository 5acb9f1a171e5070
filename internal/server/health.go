package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/teemow/calreminder/internal/lifecycle"
)

// Health status constants for health check responses.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusUnavailable  = "unavailable"
	healthStatusStopped      = "stopped"
	healthStatusDisabled     = "disabled"
)

// storageCheckTimeout bounds the store probe made by the readiness check.
const storageCheckTimeout = 2 * time.Second

// HealthChecker provides health check endpoints for Kubernetes probes.
type HealthChecker struct {
	ready         atomic.Bool
	serverContext *ServerContext
	startTime     time.Time
	version       string
}

// NewHealthChecker creates a new HealthChecker.
func NewHealthChecker(sc *ServerContext, version string) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
		version:       version,
	}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// isServerShuttingDown returns false if serverContext is nil.
func (h *HealthChecker) isServerShuttingDown() bool {
	return h.serverContext != nil && h.serverContext.IsShutdown()
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// SchedulerHealth describes the in-process dispatch loop.
type SchedulerHealth struct {
	Status   string `json:"status"`
	Interval string `json:"interval,omitempty"`
}

// DetailedHealthResponse provides comprehensive health information.
type DetailedHealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version,omitempty"`
	Uptime    string          `json:"uptime"`
	Scheduler SchedulerHealth `json:"scheduler"`
	Calendar  string          `json:"calendar"`
	Email     string          `json:"email"`
	Reminders map[string]int  `json:"reminders,omitempty"`
}

// LivenessHandler returns an HTTP handler for the /healthz endpoint.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler returns an HTTP handler for the /readyz endpoint. Besides
// the ready flag and shutdown state it verifies the reminder store loads.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		checks := make(map[string]string)
		allOk := true

		if !h.ready.Load() {
			checks["ready"] = healthStatusNotReady
			allOk = false
		} else {
			checks["ready"] = healthStatusOK
		}

		if h.isServerShuttingDown() {
			checks["shutdown"] = healthStatusShuttingDown
			allOk = false
		} else {
			checks["shutdown"] = healthStatusOK
		}

		if h.serverContext != nil && h.serverContext.Manager() != nil {
			ctx, cancel := context.WithTimeout(r.Context(), storageCheckTimeout)
			err := h.serverContext.Manager().Ping(ctx)
			cancel()
			if err != nil {
				checks["storage"] = healthStatusUnavailable
				allOk = false
			} else {
				checks["storage"] = healthStatusOK
			}
		}

		response := HealthResponse{Checks: checks}
		if allOk {
			response.Status = healthStatusOK
			w.WriteHeader(http.StatusOK)
		} else {
			response.Status = healthStatusNotReady
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}

// DetailedHealthHandler returns an HTTP handler for the /healthz/detailed
// endpoint.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		response := DetailedHealthResponse{
			Status:    healthStatusOK,
			Version:   h.version,
			Uptime:    time.Since(h.startTime).Truncate(time.Second).String(),
			Scheduler: SchedulerHealth{Status: healthStatusDisabled},
			Calendar:  healthStatusDisabled,
			Email:     healthStatusDisabled,
		}

		if sc := h.serverContext; sc != nil {
			if s := sc.Scheduler(); s != nil {
				response.Scheduler.Interval = s.Interval().String()
				response.Scheduler.Status = healthStatusStopped
				if s.Running() {
					response.Scheduler.Status = healthStatusOK
				}
			}
			if p := sc.EmailProvider(); p != "" {
				response.Email = p
			}
			if m := sc.Manager(); m != nil {
				if m.CalendarEnabled() {
					response.Calendar = healthStatusOK
				}
				if reminders, err := m.List(r.Context(), lifecycle.ListFilter{}); err == nil {
					response.Reminders = make(map[string]int)
					for _, rem := range reminders {
						response.Reminders[string(rem.Status)]++
					}
				}
			}
		}

		switch {
		case !h.ready.Load():
			response.Status = healthStatusNotReady
			w.WriteHeader(http.StatusServiceUnavailable)
		case h.isServerShuttingDown():
			response.Status = healthStatusShuttingDown
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(response)
	})
}

// RegisterHealthEndpoints registers health check endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}
