package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a logger for the named binary. Production environments log JSON at info level,
// everything else logs coloured console output at debug level.
func New(environment, service string) (*zap.Logger, error) {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.EncoderConfig.CallerKey = "caller"
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config.Build(
		zap.AddCaller(),
		zap.Fields(zap.String("service", service)),
	)
}

// Sync flushes buffered entries, ignoring the EINVAL that stderr/stdout report on some platforms.
func Sync(log *zap.Logger) {
	if err := log.Sync(); err != nil {
		log.Debug("Failed to sync logger", zap.Error(err))
	}
}
