package http

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/transport/http/middleware"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/transport/ratelimit"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/app/auth/permission"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/app/auth/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Options struct {
	DB           *gorm.DB
	Factory      *service.Factory
	Checker      *permission.Checker
	LoginLimiter middleware.AttemptLimiter
	Checks       map[string]HealthCheck
	Registry     *prometheus.Registry
	Logger       *zap.Logger

	AllowedOrigins   []string
	AllowCredentials bool
	RateLimitRPS     float64
	RateLimitBurst   int
}

// NewRouter wires the public API. Background work started for the router
// stops with ctx.
func NewRouter(ctx context.Context, o Options) (*gin.Engine, error) {
	if o.DB == nil || o.Factory == nil {
		return nil, errors.New("http: database and service factory are required")
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Checker == nil {
		o.Checker = permission.NewChecker(nil)
	}
	if o.Registry == nil {
		o.Registry = prometheus.NewRegistry()
	}
	if o.RateLimitRPS <= 0 {
		o.RateLimitRPS = 50
	}
	if o.RateLimitBurst <= 0 {
		o.RateLimitBurst = 100
	}

	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil, errors.New("http: unexpected validator engine")
	}
	if err := dto.Register(v); err != nil {
		return nil, err
	}

	h := NewHandler(o.Factory, o.Checker, o.Logger)
	metrics := middleware.NewMetrics(o.Registry)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(o.Logger))
	router.Use(gin.Recovery())
	router.Use(metrics.Handler())
	router.Use(middleware.RateLimitPerIP(ratelimit.New(ctx, o.RateLimitRPS, o.RateLimitBurst, 10_000, time.Hour)))
	corsCfg, err := corsConfig(o.AllowedOrigins, o.AllowCredentials)
	if err != nil {
		return nil, err
	}
	router.Use(cors.New(corsCfg))

	router.GET("/monitoring/health", healthHandler(o.Checks, o.Logger))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(o.Registry, promhttp.HandlerOpts{})))

	api := router.Group("/")
	api.Use(middleware.Authentication(o.Factory.Codec(), middleware.AbortAuth))
	api.Use(middleware.DBSession(o.DB, o.Logger))

	api.POST("/signup", h.SignUp)
	api.POST("/signin", middleware.LoginLimit(o.LoginLimiter, o.Logger), h.SignIn)
	api.POST("/refresh", h.Refresh)
	api.GET("/me", middleware.RequireAuth(), h.Me)
	api.GET("/users", middleware.RequireAuth(), h.ListUsers)

	return router, nil
}

// corsConfig allows every origin when none are listed. Credentials need an
// explicit list since browsers refuse them alongside a wildcard origin.
func corsConfig(origins []string, credentials bool) (cors.Config, error) {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept",
			"Authorization",
			"X-Requested-With",
			middleware.RequestIDHeader,
		},
		ExposeHeaders:    []string{"Content-Length", TotalCountHeader, middleware.RequestIDHeader},
		AllowCredentials: credentials,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		if credentials {
			return cors.Config{}, errors.New("http: credentials require an explicit list of allowed origins")
		}
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg, nil
}
