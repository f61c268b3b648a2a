// Package logging builds the zap logger shared by the server, the store and the workers.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New sets up the Zap Logger. The default console encoding logs in a human readable format.
func New(level, encoding string) (*zap.Logger, error) {
	prodConfig := zap.NewProductionConfig()
	prodConfig.Encoding = "console"
	if encoding == "json" {
		prodConfig.Encoding = "json"
	}
	prodConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	prodConfig.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		prodConfig.Level = zap.NewAtomicLevelAt(lvl)
	}
	return prodConfig.Build()
}

// Must is New that falls back to a no-op logger when the configuration is unusable.
func Must(level, encoding string) *zap.Logger {
	logger, err := New(level, encoding)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
