package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisrepo "github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/db/redis"
	grpcapi "github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/transport/grpc"
	httpapi "github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/transport/http"
	httpmw "github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/transport/http/middleware"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/transport/ratelimit"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/app/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/app/auth/password"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/app/auth/permission"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/app/auth/service"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/infra/config"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/infra/database"
	lg "github.com/Miraines/MoonyAndStarry/account-service/internal/infra/log"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/infra/migrate"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/infra/server"
	"github.com/gin-gonic/gin"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		lg.Must("", "").Fatal("failed to load config", zap.Error(err))
	}

	zapLog, err := lg.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		lg.Must("", "").Fatal("failed to build logger", zap.Error(err))
	}
	defer zapLog.Sync()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zapLog); err != nil {
		zapLog.Error("server terminated", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) error {
	db, err := database.Open(ctx, cfg.DatabaseURL, database.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		Debug:           cfg.LogLevel == "debug",
	}, zapLog)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := migrate.Up(sqlDB, zapLog); err != nil {
		return err
	}

	checks := map[string]httpapi.HealthCheck{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}

	var (
		cache        service.Cache
		loginLimiter httpmw.AttemptLimiter
	)
	if cfg.RedisAddress != "" {
		redisCli, err := redisrepo.NewClient(ctx, cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer redisCli.Close()

		cache = redisrepo.NewCache(redisCli, "account", cfg.CacheTTL)
		loginLimiter = redisrepo.NewLoginLimiter(redisCli, cfg.LoginAttemptsPerMinute, time.Minute)
		checks["redis"] = func(ctx context.Context) error { return redisCli.Ping(ctx).Err() }
		zapLog.Info("redis connected", zap.String("addr", cfg.RedisAddress))
	} else {
		zapLog.Warn("REDIS_ADDRESS is empty, user cache and login limiter are disabled")
	}

	codec, err := jwt.New(jwt.Config{
		Secret:    cfg.JWTSecret,
		Algorithm: cfg.JWTAlgorithm,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		TTL:       cfg.AccessTokenTTL,
	})
	if err != nil {
		return err
	}
	factory := service.NewFactory(password.NewHasher(cfg.PasswordPepper, password.DefaultParams), codec, cache, service.AuthOptions{
		AccessTTL:   cfg.AccessTokenTTL,
		RefreshTTL:  cfg.RefreshTokenTTL,
		AdminEmails: cfg.AdminEmails,
	}, zapLog)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	grpcMetrics := grpc_prometheus.NewServerMetrics()
	grpcMetrics.EnableHandlingTimeHistogram()
	registry.MustRegister(grpcMetrics)

	router, err := httpapi.NewRouter(ctx, httpapi.Options{
		DB:               db,
		Factory:          factory,
		Checker:          permission.NewChecker(permission.ACLPolicy{}),
		LoginLimiter:     loginLimiter,
		Checks:           checks,
		Registry:         registry,
		Logger:           zapLog,
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: cfg.AllowCredentials,
		RateLimitRPS:     cfg.RateLimitRPS,
		RateLimitBurst:   cfg.RateLimitBurst,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	httpOpts := server.HTTPOptions{
		Address:     cfg.HTTPAddress,
		CertFile:    cfg.TLSCertFile,
		KeyFile:     cfg.TLSKeyFile,
		StopTimeout: cfg.ShutdownTimeout,
	}
	srv := server.NewHTTPServer(httpOpts, router)
	g.Go(func() error {
		return server.ServeHTTP(gctx, srv, httpOpts, zapLog)
	})

	if cfg.GRPCAddress != "" {
		health := grpcapi.NewHealth(checks, 10*time.Second, zapLog)
		grpcSrv, err := server.NewGRPCServer(server.GRPCOptions{
			Address:  cfg.GRPCAddress,
			CertFile: cfg.TLSCertFile,
			KeyFile:  cfg.TLSKeyFile,
			Limiter:  ratelimit.New(gctx, cfg.RateLimitRPS, cfg.RateLimitBurst, 10_000, time.Hour),
			Metrics:  grpcMetrics,
		}, health.Server(), zapLog)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return health.Run(gctx)
		})
		g.Go(func() error {
			return server.ServeGRPC(gctx, grpcSrv, cfg.GRPCAddress, cfg.ShutdownTimeout, zapLog)
		})
	}

	<-gctx.Done()
	zapLog.Info("shutting down")
	return g.Wait()
}
