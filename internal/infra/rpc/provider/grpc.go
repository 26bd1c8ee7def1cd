package provider

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vietddude/callcore/internal/infra/rpc"
)

// GRPCProvider implements Provider for gRPC.
// Generated clients use Conn(); status errors they return are classified
// natively by the classify package.
type GRPCProvider struct {
	name     string
	endpoint string
	conn     *grpc.ClientConn

	Monitor *Monitor
}

// NewGRPCProvider creates a new gRPC provider. The connection is established
// lazily on first use.
func NewGRPCProvider(name, endpoint string, opts ...grpc.DialOption) (*GRPCProvider, error) {
	target := endpoint
	var dialOpts []grpc.DialOption

	if strings.HasPrefix(endpoint, "https://") || strings.HasSuffix(endpoint, ":443") {
		creds := credentials.NewTLS(&tls.Config{})
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(creds))
		target = strings.TrimPrefix(target, "https://")
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}
	target = strings.TrimPrefix(target, "grpc://")
	dialOpts = append(dialOpts, opts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", target, err)
	}

	return &GRPCProvider{
		name:     name,
		endpoint: endpoint,
		conn:     conn,
		Monitor:  NewMonitor(),
	}, nil
}

// Conn returns the underlying gRPC connection.
func (p *GRPCProvider) Conn() *grpc.ClientConn {
	return p.conn
}

// HealthCheck queries the standard gRPC health service for service ("" for
// the whole server).
func (p *GRPCProvider) HealthCheck(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	start := time.Now()
	resp, err := healthpb.NewHealthClient(p.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		p.Monitor.RecordFailure()
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	p.Monitor.RecordSuccess(time.Since(start))
	return resp.GetStatus(), nil
}

// HealthOperation wraps HealthCheck as a repeatable operation.
func (p *GRPCProvider) HealthOperation(service string) rpc.Operation[string] {
	return func(ctx context.Context) (string, error) {
		st, err := p.HealthCheck(ctx, service)
		if err != nil {
			return "", err
		}
		return st.String(), nil
	}
}

// GetName returns the provider's name.
func (p *GRPCProvider) GetName() string {
	return p.name
}

// GetHealth returns the provider's health status.
func (p *GRPCProvider) GetHealth() HealthStatus {
	return p.Monitor.Health()
}

// Close cleans up resources.
func (p *GRPCProvider) Close() error {
	return p.conn.Close()
}
