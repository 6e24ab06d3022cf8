package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger: JSON in production, colored console
// otherwise. The returned sync func flushes buffered entries on shutdown.
func New(isProd bool) (*zap.Logger, func() error) {
	var log *zap.Logger
	if isProd {
		log = zap.Must(zap.NewProduction())
	} else {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		log = zap.Must(cfg.Build())
	}
	return log, log.Sync
}
