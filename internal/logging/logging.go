// Package logging builds the zap loggers of the activity binaries.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go-activity-pipeline/internal/config"
)

// NewLogger builds a logger named after the binary. The API logs JSON;
// the CLI usually asks for the console format. An unknown level falls back
// to info, an unknown format is an error.
func NewLogger(cfg config.LogConfig, service string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(strings.TrimSpace(cfg.Level))); err != nil {
		level = zapcore.InfoLevel
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.StringDurationEncoder

	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		EncoderConfig:    enc,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	switch format := strings.ToLower(strings.TrimSpace(cfg.Format)); format {
	case "", "json":
		zc.Encoding = "json"
		zc.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}
	case "console":
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.EncoderConfig.CallerKey = zapcore.OmitKey
	default:
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logger.Named(service), nil
}
