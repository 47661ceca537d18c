package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a configured Zap logger from Config. Reads LogLevel
// (debug, info, warn, error; default "info") and LogFormat (json, console;
// default "json"). The returned logger is meant to be narrowed per
// component via Named so log lines are attributable (token, wsclient, statelog, ...).
func NewLogger(cfg *Config) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	var zcfg zap.Config
	switch cfg.LogFormat {
	case "console":
		zcfg = zap.NewDevelopmentConfig()
	case "json", "":
		zcfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q: must be \"json\" or \"console\"", cfg.LogFormat)
	}

	zcfg.Level = zap.NewAtomicLevelAt(zapLevel)
	zcfg.InitialFields = map[string]any{"service": "loxone-mcp"}

	return zcfg.Build()
}
