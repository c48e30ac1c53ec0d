// Package grpc exposes the standard gRPC health service, fed by the same
// dependency checks as the HTTP health endpoint.
package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is reported next to the server-wide ("") status.
const ServiceName = "account.v1.Accounts"

type Health struct {
	server   *health.Server
	checks   map[string]func(context.Context) error
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
}

func NewHealth(checks map[string]func(context.Context) error, interval time.Duration, log *zap.Logger) *Health {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	h := &Health{
		server:   health.NewServer(),
		checks:   checks,
		interval: interval,
		timeout:  2 * time.Second,
		log:      log,
	}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Server is the grpc.health.v1.Health implementation to register.
func (h *Health) Server() *health.Server {
	return h.server
}

func (h *Health) set(s healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", s)
	h.server.SetServingStatus(ServiceName, s)
}

// Refresh runs every check once and publishes the result.
func (h *Health) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Warn("grpc health check failed", zap.String("check", name), zap.Error(err))
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.set(st)
	return st
}

// Run refreshes on every tick until ctx is done, then marks the server as
// shutting down so watchers drain.
func (h *Health) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return nil
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}
