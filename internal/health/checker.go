// Package health runs the diagnostics behind 'taleyport doctor'.
//
// Each Checker verifies one dependency (the backend, the session cookie, the
// home directory) and reports a Result. A Manager runs checkers in parallel
// with a per-check timeout and keeps results in registration order:
//
//	m := health.NewManager().WithTimeout(5 * time.Second)
//	m.AddChecker(health.NewBackendChecker(client))
//	m.AddChecker(health.NewDirectoryChecker("home", home))
//
//	outcomes := m.Check(ctx)
//	if health.OverallStatus(outcomes) == health.StatusUnhealthy {
//	    ...
//	}
package health

import (
	"context"
	"time"
)

// Checker verifies a single dependency.
type Checker interface {
	// Name is lowercase with hyphens, e.g. "backend" or "session-cookie".
	Name() string

	// Check must respect ctx's deadline.
	Check(ctx context.Context) *Result
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc struct {
	name string
	fn   func(ctx context.Context) *Result
}

// NewCheckerFunc names fn as a Checker.
func NewCheckerFunc(name string, fn func(ctx context.Context) *Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name implements Checker.
func (c *CheckerFunc) Name() string { return c.name }

// Check implements Checker.
func (c *CheckerFunc) Check(ctx context.Context) *Result { return c.fn(ctx) }

// Status represents the health check status.
type Status string

const (
	// StatusHealthy means the dependency works.
	StatusHealthy Status = "healthy"

	// StatusDegraded means taleyport can run with reduced functionality,
	// e.g. without a config file.
	StatusDegraded Status = "degraded"

	// StatusUnhealthy means commands that need the dependency will fail.
	StatusUnhealthy Status = "unhealthy"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Result is the outcome of one check.
type Result struct {
	Status  Status         `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Latency time.Duration  `json:"latency_ns"`
}

// NewResult creates a new health check result with the given status and message.
func NewResult(status Status, message string) *Result {
	return &Result{
		Status:  status,
		Message: message,
		Details: make(map[string]any),
	}
}

// WithDetail adds a detail to the result and returns the result for chaining.
func (r *Result) WithDetail(key string, value any) *Result {
	r.Details[key] = value
	return r
}

// WithLatency sets the latency and returns the result for chaining.
func (r *Result) WithLatency(latency time.Duration) *Result {
	r.Latency = latency
	return r
}

// Healthy creates a healthy result with the given message.
func Healthy(message string) *Result {
	return NewResult(StatusHealthy, message)
}

// Degraded creates a degraded result with the given message.
func Degraded(message string) *Result {
	return NewResult(StatusDegraded, message)
}

// Unhealthy creates an unhealthy result with the given message.
func Unhealthy(message string) *Result {
	return NewResult(StatusUnhealthy, message)
}
