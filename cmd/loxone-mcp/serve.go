package main

import (
	"context"
	"fmt"
	"time"

	"github.com/loxone-mcp/bridge/internal/mcpserver"
)

// transport selects which of spec.md §4.11's two launch modes to run.
type transport int

const (
	transportStdio transport = iota
	transportHTTP
)

// runServe brings up the full C1-C10 stack, then serves tools over the
// requested transport until ctx is canceled, shutting down within
// spec.md §5's budget.
func runServe(ctx context.Context, args []string, mode transport) error {
	configPath, _ := commonFlags(transportName(mode), args)

	creds := credentialProvider(nil)
	cfg, err := loadConfig(configPath, creds)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	b, err := buildBridge(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.shutdown()

	bgCtx, cancelBG := context.WithCancel(ctx)
	defer cancelBG()
	go b.run(bgCtx)

	switch mode {
	case transportStdio:
		return mcpserver.RunStdio(ctx, b.toolCtx, logger.Named("mcpserver"))
	case transportHTTP:
		srv := mcpserver.NewHTTPServer(b.toolCtx, mcpserver.HTTPConfig{
			Host:        cfg.SSEHost,
			Port:        cfg.SSEPort,
			APIKey:      cfg.APIKey,
			RequireAuth: cfg.SSERequireAuth,
			DevMode:     cfg.LogLevel == "debug",
		}, logger.Named("mcpserver"))

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		}
	default:
		return fmt.Errorf("unknown transport mode %d", mode)
	}
}

func transportName(mode transport) string {
	if mode == transportHTTP {
		return "sse"
	}
	return "server"
}
