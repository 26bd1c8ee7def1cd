// Package provider implements transport adapters whose failures the
// classifier understands.
//
// This package contains:
//   - Provider interface: name, health and lifecycle of a remote endpoint
//   - HTTPProvider: JSON over HTTP, non-2xx surfaced as classify.ResponseError
//   - GRPCProvider: gRPC connection with a health-check operation
//   - Monitor: latency, failure and throttle tracking shared by both
package provider

import "time"

// Provider is the core abstraction for a remote endpoint.
type Provider interface {
	// GetName returns the provider identifier (e.g., "orders-api")
	GetName() string

	// GetHealth returns current health metrics
	GetHealth() HealthStatus

	// Close cleans up resources
	Close() error
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	Throttled     int           `json:"throttled"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at,omitempty"`
}
