package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string
	LogLevel    string

	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	JWTSecret       string
	JWTAlgorithm    string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	PasswordPepper  string
	AdminEmails     []string

	HTTPAddress     string
	GRPCAddress     string
	TLSCertFile     string
	TLSKeyFile      string
	ShutdownTimeout time.Duration

	RedisAddress           string
	RedisPassword          string
	RedisDB                int
	CacheTTL               time.Duration
	LoginAttemptsPerMinute int

	RateLimitRPS     float64
	RateLimitBurst   int
	AllowedOrigins   []string
	AllowCredentials bool
}

var required = []string{"DATABASE_URL", "JWT_SECRET"}

var defaults = map[string]any{
	"ENVIRONMENT":               "development",
	"LOG_LEVEL":                 "info",
	"JWT_ALGORITHM":             "HS256",
	"ACCESS_TOKEN_TTL":          "60m",
	"REFRESH_TOKEN_TTL":         "720h",
	"HTTP_ADDRESS":              ":8080",
	"GRPC_ADDRESS":              ":50051",
	"SHUTDOWN_TIMEOUT":          "10s",
	"CACHE_TTL":                 "5m",
	"LOGIN_ATTEMPTS_PER_MINUTE": 5,
	"RATE_LIMIT_RPS":            50,
	"RATE_LIMIT_BURST":          100,
	"DB_MAX_OPEN_CONNS":         20,
	"DB_MAX_IDLE_CONNS":         5,
	"DB_CONN_MAX_LIFETIME":      "30m",
}

var optional = []string{
	"JWT_ISSUER", "JWT_AUDIENCE", "PASSWORD_PEPPER", "ADMIN_EMAILS",
	"TLS_CERT_FILE", "TLS_KEY_FILE",
	"REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB",
	"ALLOWED_ORIGINS", "ALLOW_CREDENTIALS",
}

// Load reads config.json from the working directory when present and lets
// environment variables override it.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	for _, k := range append(append([]string{}, required...), optional...) {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	for _, k := range required {
		if strings.TrimSpace(v.GetString(k)) == "" {
			return nil, fmt.Errorf("%s is not set", k)
		}
	}

	cfg := &Config{
		Environment:       v.GetString("ENVIRONMENT"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		DBMaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		DBConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),

		JWTSecret:       v.GetString("JWT_SECRET"),
		JWTAlgorithm:    strings.ToUpper(v.GetString("JWT_ALGORITHM")),
		JWTIssuer:       v.GetString("JWT_ISSUER"),
		JWTAudience:     v.GetString("JWT_AUDIENCE"),
		AccessTokenTTL:  v.GetDuration("ACCESS_TOKEN_TTL"),
		RefreshTokenTTL: v.GetDuration("REFRESH_TOKEN_TTL"),
		PasswordPepper:  v.GetString("PASSWORD_PEPPER"),
		AdminEmails:     list(v, "ADMIN_EMAILS"),

		HTTPAddress:     v.GetString("HTTP_ADDRESS"),
		GRPCAddress:     v.GetString("GRPC_ADDRESS"),
		TLSCertFile:     v.GetString("TLS_CERT_FILE"),
		TLSKeyFile:      v.GetString("TLS_KEY_FILE"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),

		RedisAddress:           v.GetString("REDIS_ADDRESS"),
		RedisPassword:          v.GetString("REDIS_PASSWORD"),
		RedisDB:                v.GetInt("REDIS_DB"),
		CacheTTL:               v.GetDuration("CACHE_TTL"),
		LoginAttemptsPerMinute: v.GetInt("LOGIN_ATTEMPTS_PER_MINUTE"),

		RateLimitRPS:     v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:   v.GetInt("RATE_LIMIT_BURST"),
		AllowedOrigins:   list(v, "ALLOWED_ORIGINS"),
		AllowCredentials: v.GetBool("ALLOW_CREDENTIALS"),
	}

	switch {
	case cfg.AccessTokenTTL <= 0:
		return nil, fmt.Errorf("ACCESS_TOKEN_TTL must be positive, got %v", cfg.AccessTokenTTL)
	case cfg.RefreshTokenTTL <= 0:
		return nil, fmt.Errorf("REFRESH_TOKEN_TTL must be positive, got %v", cfg.RefreshTokenTTL)
	case (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == ""):
		return nil, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	case cfg.AllowCredentials && (len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*")):
		return nil, errors.New("ALLOW_CREDENTIALS needs explicit ALLOWED_ORIGINS")
	}
	return cfg, nil
}

// TLS reports whether listeners should serve over TLS.
func (c *Config) TLS() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// list accepts a JSON-style array, a comma separated string or a native
// list from config.json.
func list(v *viper.Viper, key string) []string {
	raw := v.Get(key)
	if raw == nil {
		return nil
	}
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
		var out []string
		for _, part := range strings.Split(s, ",") {
			part = strings.Trim(strings.TrimSpace(part), `"'`)
			if part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return v.GetStringSlice(key)
}
