// ABOUTME: zap logger construction from level and format settings
// ABOUTME: JSON or console encoding with ISO8601 timestamps under "ts"

// Package logging builds the process logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing to stderr at level, encoded as "json" or
// "console".
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encoding := "json"
	if format == "console" {
		encoding = "console"
	} else if format != "json" {
		return nil, fmt.Errorf("invalid log format: %q", format)
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Encoding:         encoding,
		EncoderConfig:    newEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

// NewCore returns a core writing to ws, for tests and embedded callers.
func NewCore(level zapcore.Level, format string, ws zapcore.WriteSyncer) zapcore.Core {
	var enc zapcore.Encoder
	if format == "console" {
		enc = zapcore.NewConsoleEncoder(newEncoderConfig())
	} else {
		enc = zapcore.NewJSONEncoder(newEncoderConfig())
	}
	return zapcore.NewCore(enc, ws, level)
}

func newEncoderConfig() zapcore.EncoderConfig {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return encoderCfg
}
