package provider

import (
	"sync"
	"time"
)

// Monitor tracks request latency, failures and throttling for one provider.
type Monitor struct {
	mu sync.RWMutex

	recentLatencies  []time.Duration
	maxLatencyWindow int

	successCount  int
	failureCount  int
	throttleCount int
	lastSuccessAt time.Time
	lastFailureAt time.Time

	// Above this error rate the provider is reported unavailable.
	unavailableRate float64
}

// NewMonitor creates a monitor with default thresholds.
func NewMonitor() *Monitor {
	return &Monitor{
		recentLatencies:  make([]time.Duration, 0, 100),
		maxLatencyWindow: 100,
		lastSuccessAt:    time.Now(),
		unavailableRate:  0.5,
	}
}

// RecordSuccess records a request that produced a successful response.
func (m *Monitor) RecordSuccess(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.successCount++
	m.lastSuccessAt = time.Now()
	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > m.maxLatencyWindow {
		m.recentLatencies = m.recentLatencies[1:]
	}
}

// RecordFailure records a failed request.
func (m *Monitor) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failureCount++
	m.lastFailureAt = time.Now()
}

// RecordThrottle records a rate limited response. It counts as a failure.
func (m *Monitor) RecordThrottle() {
	m.mu.Lock()
	m.throttleCount++
	m.mu.Unlock()

	m.RecordFailure()
}

// Health returns the current health snapshot.
func (m *Monitor) Health() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h := HealthStatus{
		Available:     true,
		Throttled:     m.throttleCount,
		LastSuccessAt: m.lastSuccessAt,
		LastFailureAt: m.lastFailureAt,
	}

	if total := m.successCount + m.failureCount; total > 0 {
		h.ErrorRate = float64(m.failureCount) / float64(total)
		h.Available = h.ErrorRate <= m.unavailableRate
	}

	if len(m.recentLatencies) > 0 {
		var sum time.Duration
		for _, l := range m.recentLatencies {
			sum += l
		}
		h.Latency = sum / time.Duration(len(m.recentLatencies))
	}

	return h
}
