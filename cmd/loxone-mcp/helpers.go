package main

import (
	"go.uber.org/zap"

	"github.com/loxone-mcp/bridge/internal/config"
)

// buildLogger wires config.NewLogger for the long-running server commands.
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	return config.NewLogger(cfg)
}

// quietLogger is used by the one-shot setup/verify/clear commands, whose
// output is the command's own stdout/stderr text rather than structured
// logs; warnings from collaborators (credential backend failures, a failed
// public-key fetch) still surface at warn level and above.
func quietLogger() (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	zcfg.Encoding = "console"
	return zcfg.Build()
}
