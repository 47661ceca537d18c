package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/loxone-mcp/bridge/internal/httpclient"
	"github.com/loxone-mcp/bridge/internal/token"
)

// runVerify checks that credentials resolve and that the Miniserver is
// reachable with them, per spec.md §6's "verify" command. It never leaves
// the bridge running: success is a probe, not a launch.
func runVerify(ctx context.Context, args []string) error {
	configPath, _ := commonFlags("verify", args)

	logger, err := quietLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	creds := credentialProvider(logger)
	if missing := creds.Validate(); len(missing) > 0 {
		return fmt.Errorf("missing required credentials: %v", missing)
	}

	cfg, err := loadConfig(configPath, creds)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	tokens := token.NewManager(cfg.Host, cfg.Port, cfg.User, cfg.Password, logger.Named("token"))
	if err := tokens.LoadPublicKey(ctx); err != nil {
		logger.Warn("public key load failed, command encryption disabled", zap.Error(err))
	}
	if err := tokens.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticating with miniserver: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tokens.Kill(shutdownCtx)
	}()

	client := httpclient.New(cfg.Host, cfg.Port, tokens, tokens.Encrypter(), logger.Named("httpclient"))
	if err := client.CheckReachable(ctx); err != nil {
		return fmt.Errorf("miniserver not reachable: %w", err)
	}

	fmt.Printf("ok: authenticated to %s as %s\n", cfg.Host, cfg.User)
	return nil
}
