// Package dbg builds the zap loggers the runners inject everywhere else.
package dbg

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewDevLogger returns a human-readable console logger for backtests and
// local runs.
func NewDevLogger() *zap.Logger {
	return build(zap.NewDevelopmentConfig())
}

// NewProdLogger returns a JSON logger for live sessions.
func NewProdLogger() *zap.Logger {
	return build(zap.NewProductionConfig())
}

func build(cfg zap.Config) *zap.Logger {
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableCaller = true

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
