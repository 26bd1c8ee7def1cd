package provider

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/vietddude/callcore/internal/infra/rpc/classify"
)

func startHealthServer(t *testing.T) *bufconn.Listener {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("orders", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("billing", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)
	return lis
}

func TestGRPCProvider_HealthCheck(t *testing.T) {
	lis := startHealthServer(t)

	p, err := NewGRPCProvider("orders-grpc", "passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	if err != nil {
		t.Fatalf("NewGRPCProvider: %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := p.HealthOperation("orders")(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != healthpb.HealthCheckResponse_SERVING.String() {
		t.Errorf("got %s", got)
	}

	st, err := p.HealthCheck(ctx, "billing")
	if err != nil || st != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("billing = %s, %v", st, err)
	}

	_, err = p.HealthCheck(ctx, "missing")
	if !classify.IsKind(err, classify.KindNotFound) {
		t.Errorf("expected NOT_FOUND for unknown service, got %v", err)
	}

	if h := p.GetHealth(); h.Throttled != 0 || h.Latency == 0 {
		t.Errorf("unexpected health: %+v", h)
	}
}
