package health

import (
	"context"
	"sync"
	"time"
)

// Outcome pairs a checker name with its result.
type Outcome struct {
	Name   string  `json:"name"`
	Result *Result `json:"result"`
}

// Manager runs checkers in parallel, each under its own timeout.
type Manager struct {
	checkers []Checker
	timeout  time.Duration
	mu       sync.RWMutex
}

// NewManager creates a manager with a 5 second per-check timeout.
func NewManager() *Manager {
	return &Manager{
		checkers: make([]Checker, 0),
		timeout:  5 * time.Second,
	}
}

// WithTimeout sets a custom timeout for health checks.
func (m *Manager) WithTimeout(timeout time.Duration) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return m
}

// AddChecker registers a new health checker.
func (m *Manager) AddChecker(checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, checker)
}

// Check runs every checker and returns the outcomes in registration order.
// A checker that returns nil is reported as unhealthy.
func (m *Manager) Check(ctx context.Context) []Outcome {
	m.mu.RLock()
	checkers := make([]Checker, len(m.checkers))
	copy(checkers, m.checkers)
	timeout := m.timeout
	m.mu.RUnlock()

	outcomes := make([]Outcome, len(checkers))
	var wg sync.WaitGroup

	for i, checker := range checkers {
		wg.Add(1)
		go func(i int, c Checker) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			result := c.Check(checkCtx)
			if result == nil {
				result = Unhealthy("check returned no result")
			}
			if result.Latency == 0 {
				result.Latency = time.Since(start)
			}

			// Each goroutine owns its slot.
			outcomes[i] = Outcome{Name: c.Name(), Result: result}
		}(i, checker)
	}

	wg.Wait()
	return outcomes
}

// OverallStatus is unhealthy if any outcome is unhealthy, degraded if any is
// degraded, and healthy otherwise.
func OverallStatus(outcomes []Outcome) Status {
	hasDegraded := false
	for _, o := range outcomes {
		if o.Result.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
		if o.Result.Status == StatusDegraded {
			hasDegraded = true
		}
	}

	if hasDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}

// CheckNames returns the names of all registered checkers.
func (m *Manager) CheckNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.checkers))
	for i, checker := range m.checkers {
		names[i] = checker.Name()
	}
	return names
}
