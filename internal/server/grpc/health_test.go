package grpcserver

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func checkStatus(t *testing.T, h *Health, svc string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := h.hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: svc})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealth_FeedState(t *testing.T) {
	t.Parallel()

	h := NewHealth()
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, checkStatus(t, h, ""))
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkStatus(t, h, Service))

	h.SetFeed(true)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, checkStatus(t, h, Service))

	h.SetFeed(false)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkStatus(t, h, Service))

	h.Shutdown()
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkStatus(t, h, ""))
}

func TestNewServer_ServesHealth(t *testing.T) {
	t.Parallel()

	h := NewHealth()
	h.SetFeed(true)
	s := NewServer(zaptest.NewLogger(t), h, false)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Serve(lis) }()
	defer s.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: Service})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
