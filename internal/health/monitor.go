package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/callcore/internal/infra/rpc/provider"
)

// checkInterval is the minimum time between two full checks.
const checkInterval = 10 * time.Second

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Health(ctx context.Context) error
}

// Monitor aggregates health status from dependencies and providers.
type Monitor struct {
	deps       map[string]Pinger
	providers  []provider.Provider
	lastCheck  time.Time
	lastReport map[string]ComponentHealth
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor.
func NewMonitor(deps map[string]Pinger, providers []provider.Provider) *Monitor {
	if deps == nil {
		deps = make(map[string]Pinger)
	}
	return &Monitor{
		deps:       deps,
		providers:  providers,
		lastReport: make(map[string]ComponentHealth),
	}
}

// CheckHealth performs a health check for all components.
func (m *Monitor) CheckHealth(ctx context.Context) map[string]ComponentHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Avoid hammering dependencies when scraped often
	if time.Since(m.lastCheck) < checkInterval && len(m.lastReport) > 0 {
		return m.lastReport
	}

	report := make(map[string]ComponentHealth)

	for name, dep := range m.deps {
		h := ComponentHealth{Name: name, Status: StatusHealthy}
		start := time.Now()
		if err := dep.Health(ctx); err != nil {
			h.Status = StatusCritical
			h.Error = err.Error()
		}
		h.LatencyMs = time.Since(start).Milliseconds()
		report[name] = h
	}

	for _, p := range m.providers {
		ph := p.GetHealth()
		h := ComponentHealth{
			Name:      p.GetName(),
			Status:    StatusHealthy,
			ErrorRate: ph.ErrorRate,
			LatencyMs: ph.Latency.Milliseconds(),
			Throttled: ph.Throttled,
		}
		if !ph.Available {
			h.Status = StatusCritical
		} else if ph.ErrorRate > 0.1 {
			h.Status = StatusDegraded
		}
		report[h.Name] = h
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
