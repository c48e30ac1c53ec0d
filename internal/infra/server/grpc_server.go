package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/transport/grpc/middleware"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/transport/ratelimit"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type GRPCOptions struct {
	Address     string
	CertFile    string
	KeyFile     string
	Limiter     *ratelimit.PerKey
	Metrics     *grpc_prometheus.ServerMetrics
	StopTimeout time.Duration
}

// NewGRPCServer builds a server with the interceptor chain, the health
// service and reflection registered.
func NewGRPCServer(o GRPCOptions, healthSrv *health.Server, logger *zap.Logger) (*grpc.Server, error) {
	opts := []grpc.ServerOption{
		grpc.UnaryInterceptor(middleware.ChainUnaryServer(logger, o.Metrics, o.Limiter)),
	}
	if o.CertFile != "" {
		creds, err := credentials.NewServerTLSFromFile(o.CertFile, o.KeyFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.Creds(creds))
	}

	srv := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(srv, healthSrv)
	reflection.Register(srv)
	if o.Metrics != nil {
		o.Metrics.InitializeMetrics(srv)
	}
	return srv, nil
}

// ServeGRPC listens on addr and serves until ctx is done, then stops
// gracefully within timeout.
func ServeGRPC(ctx context.Context, srv *grpc.Server, addr string, timeout time.Duration, logger *zap.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return serveGRPC(ctx, srv, lis, timeout, logger)
}

func serveGRPC(ctx context.Context, srv *grpc.Server, lis net.Listener, timeout time.Duration, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("ctx cancelled, stopping gRPC server")

	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()

	select {
	case <-stopCtx.Done():
		srv.Stop()
	case <-done:
	}
	logger.Info("gRPC server stopped")
	return nil
}
