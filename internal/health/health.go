// Package health provides system health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// ComponentHealth contains health details for one dependency or provider.
type ComponentHealth struct {
	Name      string       `json:"name"`
	Status    SystemStatus `json:"status"`
	Error     string       `json:"error,omitempty"`
	ErrorRate float64      `json:"error_rate,omitempty"`
	LatencyMs int64        `json:"latency_ms,omitempty"`
	Throttled int          `json:"throttled,omitempty"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus               `json:"system_status"`
	Components   map[string]ComponentHealth `json:"components"`
}

// Aggregate returns the worst status in the report.
func Aggregate(components map[string]ComponentHealth) SystemStatus {
	status := StatusHealthy
	for _, c := range components {
		if c.Status == StatusCritical {
			return StatusCritical
		}
		if c.Status == StatusDegraded {
			status = StatusDegraded
		}
	}
	return status
}
