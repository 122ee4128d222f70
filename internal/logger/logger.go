package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stockroom/m/internal/config"
)

// New builds a zap logger from the logger section of the configuration.
// Unknown levels fall back to info.
func New(cfg config.LoggerConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if cfg.Level != "" {
		if parsed, err := zapcore.ParseLevel(cfg.Level); err == nil {
			level.SetLevel(parsed)
		}
	}

	zc := zap.NewProductionConfig()
	if cfg.Encoding == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	zc.Encoding = cfg.Encoding
	if zc.Encoding != "console" {
		zc.Encoding = "json"
	}
	zc.DisableCaller = cfg.DisableCaller
	zc.DisableStacktrace = cfg.DisableStacktrace
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zc.Build()
}
