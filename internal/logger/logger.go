// Package logger builds the structured logger shared by the CLI and the
// pipeline, and records crash reports when the process panics.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the level, encoding and sinks of a logger.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	// Output lists zap sink URLs; empty means stderr.
	Output []string
}

// New builds a zap logger. Console output is compact and meant for a
// terminal; json output suits log shipping.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		l, err := zapcore.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = l
	}

	var cfg zap.Config
	switch strings.ToLower(opts.Format) {
	case "", "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.Development = false
		cfg.DisableStacktrace = true
		cfg.DisableCaller = true
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	case "json":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unsupported log format: %q (supported: console, json)", opts.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	if len(opts.Output) > 0 {
		cfg.OutputPaths = opts.Output
	}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}
