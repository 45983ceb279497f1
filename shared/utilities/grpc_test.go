package utilities

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func TestRegisterHealthServer(t *testing.T) {
	srv := grpc.NewServer()
	hs := RegisterHealthServer(srv, "auth-service")

	for _, name := range []string{"", "auth-service"} {
		resp, err := hs.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: name})
		require.NoError(t, err)
		assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
	}

	hs.Shutdown()

	resp, err := hs.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: "auth-service"})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
