package logger

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the service logger for the given environment.
func New(env string) (*zap.Logger, error) {
	return NewWithWriter(env, nil)
}

// NewWithWriter builds the service logger and, when extra is non-nil, tees
// JSON-encoded entries to it (used for the CloudWatch Logs writer).
func NewWithWriter(env string, extra io.Writer) (*zap.Logger, error) {
	config := buildConfig(env)

	if extra == nil {
		log, err := config.Build()
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
		return log, nil
	}

	level := zap.NewAtomicLevelAt(config.Level.Level())
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(config.EncoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)
	jsonCfg := config.EncoderConfig
	jsonCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	extraCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(jsonCfg),
		zapcore.AddSync(extra),
		level,
	)

	return zap.New(
		zapcore.NewTee(consoleCore, extraCore),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

func buildConfig(env string) zap.Config {
	if env == "production" {
		config := zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return config
	}
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return config
}

// Presence reports whether a credential is set without revealing it.
func Presence(v string) string {
	if v == "" {
		return "missing"
	}
	return "set"
}
