package util

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultServiceName tags logs and spans when no name is configured
const DefaultServiceName = "pos-service"

var logger *zap.Logger

// InitLogger builds the process logger. Production writes JSON at info level,
// anything else writes coloured console output at debug level. A non-empty
// level overrides the default. Every entry carries the service and env fields.
func InitLogger(env, service, level string) error {
	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return err
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	if service == "" {
		service = DefaultServiceName
	}
	config.InitialFields = map[string]interface{}{
		"service": service,
		"env":     env,
	}

	built, err := config.Build()
	if err != nil {
		return err
	}

	logger = built
	zap.ReplaceGlobals(logger)
	return nil
}

// GetLogger returns the process logger, falling back to a development logger
// when InitLogger has not run (tests, tools)
func GetLogger() *zap.Logger {
	if logger == nil {
		dev, _ := zap.NewDevelopment()
		logger = dev.With(zap.String("service", DefaultServiceName))
	}
	return logger
}

// SyncLogger flushes any buffered log entries
func SyncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}
