package grpc

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func check(t *testing.T, h *Health, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := h.Server().Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealth_Refresh(t *testing.T) {
	var down atomic.Bool
	h := NewHealth(map[string]func(context.Context) error{
		"database": func(context.Context) error {
			if down.Load() {
				return errors.New("connection refused")
			}
			return nil
		},
	}, time.Hour, nil)

	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, h, ""), "not serving before the first refresh")

	require.Equal(t, healthpb.HealthCheckResponse_SERVING, h.Refresh(t.Context()))
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, h, ""))
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, h, ServiceName))

	down.Store(true)
	h.Refresh(t.Context())
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, h, ServiceName))
}

func TestHealth_RunStopsWithContext(t *testing.T) {
	var calls atomic.Int32
	h := NewHealth(map[string]func(context.Context) error{
		"database": func(context.Context) error { calls.Add(1); return nil },
	}, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, h, ""))
}
