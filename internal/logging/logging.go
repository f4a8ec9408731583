// Package logging builds the zap loggers shared by the CLI and library
// constructors.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options tune the production config.
type Options struct {
	Level    string
	Encoding string // json (default) or console
	Output   []string
}

// New builds a production logger at the given level ("debug", "info",
// "warn", "error"). An empty level means info.
func New(opts Options) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	level := zapcore.InfoLevel
	if raw := strings.TrimSpace(opts.Level); raw != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(raw))); err != nil {
			return nil, fmt.Errorf("logging: invalid level %q: %w", opts.Level, err)
		}
	}
	config.Level = zap.NewAtomicLevelAt(level)

	switch strings.ToLower(strings.TrimSpace(opts.Encoding)) {
	case "", "json":
	case "console":
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	default:
		return nil, fmt.Errorf("logging: unsupported encoding %q", opts.Encoding)
	}
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if len(opts.Output) > 0 {
		config.OutputPaths = opts.Output
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger, nil
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
