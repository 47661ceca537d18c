package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/loxone-mcp/bridge/internal/catalog"
	"github.com/loxone-mcp/bridge/internal/config"
	"github.com/loxone-mcp/bridge/internal/credentials"
	"github.com/loxone-mcp/bridge/internal/discovery"
	"github.com/loxone-mcp/bridge/internal/events"
	"github.com/loxone-mcp/bridge/internal/httpclient"
	"github.com/loxone-mcp/bridge/internal/mirror"
	"github.com/loxone-mcp/bridge/internal/sched"
	"github.com/loxone-mcp/bridge/internal/statelog"
	"github.com/loxone-mcp/bridge/internal/token"
	"github.com/loxone-mcp/bridge/internal/tools"
	"github.com/loxone-mcp/bridge/internal/wsclient"
)

// commonFlags is the --config flag every subcommand accepts.
func commonFlags(name string, args []string) (configPath string, fs *flag.FlagSet) {
	fs = flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&configPath, "config", "", "path to configuration file")
	_ = fs.Parse(args)
	return
}

// credentialProvider is the ordered credential resolver of spec.md §4.1:
// the environment is the sole backend this bridge ships with, per
// credentials.EnvStore's own doc comment ("environment overrides any
// secret store" — and no OS keychain collaborator is wired in, since
// spec.md names none as in-scope).
func credentialProvider(logger *zap.Logger) *credentials.Provider {
	return credentials.NewProvider(logger, credentials.EnvStore{})
}

// loadConfig builds a Config from configPath/env, then fills any of
// Host/User/Password/APIKey still empty from the credential provider before
// Validate runs, per config.Config.Validate's own "fallback applied by the
// caller" contract.
func loadConfig(configPath string, creds *credentials.Provider) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if cfg.Host == "" {
		if v, ok := creds.Get(credentials.KeyHost); ok {
			cfg.Host = string(v)
		}
	}
	if cfg.User == "" {
		if v, ok := creds.Get(credentials.KeyUser); ok {
			cfg.User = string(v)
		}
	}
	if cfg.Password == "" {
		if v, ok := creds.Get(credentials.KeyPass); ok {
			cfg.Password = string(v)
		}
	}
	if cfg.APIKey == "" {
		if v, ok := creds.Get(credentials.KeyAPIKey); ok {
			cfg.APIKey = string(v)
		}
	}
	return cfg, nil
}

// bridge holds every live component of the composition root, C1-C10, so
// main's subcommands can start what they need and shut it all down in the
// reverse order it was brought up.
type bridge struct {
	cfg     *config.Config
	logger  *zap.Logger
	tokens  *token.Manager
	http    *httpclient.Client
	ws      *wsclient.Client
	bus     *events.Bus
	mir     *mirror.Store
	disc    *discovery.Discoverer
	slog    *statelog.Log
	cat     *catalog.Catalog
	toolCtx *tools.ToolContext
}

// buildBridge brings up C1-C10 in dependency order: token manager, public
// key load, authentication, the HTTP command channel, the structure
// catalogue, the event bus and its mirror/discoverer/state-log subscribers,
// then the WebSocket feed that publishes onto all of them, per spec.md
// §4.3's startup sequence.
func buildBridge(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*bridge, error) {
	tokens := token.NewManager(cfg.Host, cfg.Port, cfg.User, cfg.Password, logger.Named("token"))

	if err := tokens.LoadPublicKey(ctx); err != nil {
		logger.Warn("public key load failed, command encryption disabled", zap.Error(err))
	}
	if err := tokens.Authenticate(ctx); err != nil {
		return nil, fmt.Errorf("authenticating with miniserver: %w", err)
	}

	commands := httpclient.New(cfg.Host, cfg.Port, tokens, tokens.Encrypter(), logger.Named("httpclient"))

	cat, err := catalog.Load(ctx, commands)
	if err != nil {
		return nil, fmt.Errorf("loading structure catalogue: %w", err)
	}

	bus := events.NewBus(logger.Named("events"))
	mir := mirror.New(bus)
	disc := discovery.New(bus)

	slog := statelog.New(statelog.Options{
		MaxEventsPerSensor: cfg.MaxEventsPerSensor,
		MaxSensors:         cfg.MaxSensors,
		SyncInterval:       cfg.SyncInterval,
	}, logger.Named("statelog"))
	bus.Subscribe(func(u events.StateUpdate) {
		slog.LogChange(u.UUID, u.Old, u.New, u.ObservedUnix)
	})
	slog.Start(ctx)

	ws := wsclient.New(cfg.Host, cfg.Port, tokens, mir, logger.Named("wsclient"))

	toolCtx := tools.New(commands, mir, disc, slog, logger.Named("tools"), cat)

	b := &bridge{
		cfg:     cfg,
		logger:  logger,
		tokens:  tokens,
		http:    commands,
		ws:      ws,
		bus:     bus,
		mir:     mir,
		disc:    disc,
		slog:    slog,
		cat:     cat,
		toolCtx: toolCtx,
	}
	return b, nil
}

// run starts the background WebSocket feed, reconnect health-check, and
// token refresh loops, then blocks until ctx is canceled.
func (b *bridge) run(ctx context.Context) {
	go b.ws.Run(ctx)

	health := sched.NewPeriodic(b.cfg.ReconnectDelay, b.ws.RunHealthCheck, b.logger.Named("wsclient"))
	health.Start(ctx)

	refresh := sched.NewPeriodic(time.Minute, func(ctx context.Context) {
		if err := b.tokens.RefreshIfNeeded(ctx); err != nil {
			b.logger.Warn("token refresh failed", zap.Error(err))
		}
	}, b.logger.Named("token"))
	refresh.Start(ctx)

	<-ctx.Done()
}

// shutdown tears components down in reverse startup order, within
// spec.md §5's aggregate 10 s shutdown budget.
func (b *bridge) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	b.ws.Close()
	b.slog.Shutdown()
	if err := b.tokens.Kill(shutdownCtx); err != nil {
		b.logger.Warn("token kill failed", zap.Error(err))
	}
}
