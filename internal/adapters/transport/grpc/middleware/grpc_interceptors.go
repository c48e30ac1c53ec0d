package middleware

import (
	"github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/transport/ratelimit"
	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_zap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return grpc_recovery.UnaryServerInterceptor(grpc_recovery.WithRecoveryHandler(func(p any) error {
		logger.Error("grpc handler panicked", zap.Any("panic", p), zap.Stack("stack"))
		return status.Error(codes.Internal, "internal server error")
	}))
}

func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return grpc_zap.UnaryServerInterceptor(logger)
}

// MetricsInterceptor records into metrics, or into the process-wide
// collector when metrics is nil.
func MetricsInterceptor(metrics *grpc_prometheus.ServerMetrics) grpc.UnaryServerInterceptor {
	if metrics == nil {
		return grpc_prometheus.UnaryServerInterceptor
	}
	return metrics.UnaryServerInterceptor()
}

func ChainUnaryServer(logger *zap.Logger, metrics *grpc_prometheus.ServerMetrics, limiter *ratelimit.PerKey) grpc.UnaryServerInterceptor {
	return grpc_middleware.ChainUnaryServer(
		RecoveryInterceptor(logger),
		LoggingInterceptor(logger),
		MetricsInterceptor(metrics),
		RateLimitPerIP(limiter),
	)
}
