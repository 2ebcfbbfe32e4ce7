package config

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger builds the process logger from the log section.
func (l Log) Logger() (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", l.Level)
	}

	var zc zap.Config
	switch l.Format {
	case "", "console":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "json":
		zc = zap.NewProductionConfig()
	default:
		return nil, errors.Errorf("invalid log format %q", l.Format)
	}
	zc.Level = level
	zc.Development = false

	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	return logger, nil
}
