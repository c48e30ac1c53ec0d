package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Production emits JSON, everything else the
// console encoder. An empty level means debug.
func New(level, environment string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)

	if level != "" {
		if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("bad LOG_LEVEL=%q: %w", level, err)
		}
	}
	return cfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

func Must(level, environment string) *zap.Logger {
	l, err := New(level, environment)
	if err != nil {
		panic(err)
	}
	return l
}
