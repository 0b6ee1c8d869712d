// Package logger builds the application-wide zap logger.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a zap logger configured for the given environment.
// Production uses JSON output; anything else gets the human-readable
// development encoder with debug level enabled.
func New(env string) (*zap.Logger, error) {
	if env == "production" {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.TimeKey = "timestamp"
		return cfg.Build()
	}
	return zap.NewDevelopment()
}
