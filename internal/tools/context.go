// Package tools implements C10, the MCP tool dispatcher: the set of pure
// functions over (request, context) enumerated in spec.md §6, where context
// carries read/write access to C2 (commands), C6 (mirror), C7 (catalog),
// C8 (discoverer), and C9 (state log). Handler shape grounded on
// internal/mcp/tools.go's per-tool pattern (typed request, typed response,
// never-throw error string); the normalization and command-encoding tables
// are grounded on original_source/room_scenarios.py's blind/light constants.
package tools

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/loxone-mcp/bridge/internal/catalog"
	"github.com/loxone-mcp/bridge/internal/discovery"
	"github.com/loxone-mcp/bridge/internal/loxerr"
	"github.com/loxone-mcp/bridge/internal/mirror"
	"github.com/loxone-mcp/bridge/internal/statelog"
)

// CommandSender issues authenticated commands to the Miniserver and reports
// transport health. Satisfied by *httpclient.Client; declared consumer-side
// so C10 never imports C2's concrete type.
type CommandSender interface {
	Send(ctx context.Context, path string, requiresAuth bool) (json.RawMessage, error)
	Broken() bool
	ClearBroken()
	CheckReachable(ctx context.Context) error
}

// ToolContext is the (request, context) pair's context half: everything a
// tool handler needs to read or act on the Miniserver. The catalog pointer
// is swappable under a lock so rediscover_sensors and a future structure
// reload never race a concurrent tool call.
type ToolContext struct {
	Commands   CommandSender
	Mirror     *mirror.Store
	Discoverer *discovery.Discoverer
	StateLog   *statelog.Log
	Logger     *zap.Logger

	mu  sync.RWMutex
	cat *catalog.Catalog
}

// New builds a ToolContext. cat may be nil until the first successful
// catalog.Load; tools that depend on it report CapabilityUnavailable until
// SetCatalog is called.
func New(commands CommandSender, m *mirror.Store, d *discovery.Discoverer, log *statelog.Log, logger *zap.Logger, cat *catalog.Catalog) *ToolContext {
	return &ToolContext{
		Commands:   commands,
		Mirror:     m,
		Discoverer: d,
		StateLog:   log,
		Logger:     logger,
		cat:        cat,
	}
}

// Catalog returns the current structure snapshot, or nil if none has loaded
// yet.
func (tc *ToolContext) Catalog() *catalog.Catalog {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.cat
}

// SetCatalog installs a freshly loaded structure snapshot.
func (tc *ToolContext) SetCatalog(c *catalog.Catalog) {
	tc.mu.Lock()
	tc.cat = c
	tc.mu.Unlock()
}

// requireCatalog fetches the catalog or reports CapabilityUnavailable with
// the feature list a caller can still use, per spec.md §7's disposition for
// that error kind.
func (tc *ToolContext) requireCatalog() (*catalog.Catalog, error) {
	c := tc.Catalog()
	if c == nil {
		return nil, loxerr.New(loxerr.KindCapabilityUnavailable, loxerr.ErrCapabilityUnavailable, "structure catalogue not loaded")
	}
	return c, nil
}

// sendCommand issues path through Commands, attempting exactly one inline
// reconnect if the connection was already marked broken, per spec.md
// §4.10's failure policy ("mark the connection broken and attempt a single
// reconnect inline; a second failure returns an error result").
func (tc *ToolContext) sendCommand(ctx context.Context, path string) (json.RawMessage, error) {
	if tc.Commands == nil {
		return nil, loxerr.New(loxerr.KindCapabilityUnavailable, loxerr.ErrCapabilityUnavailable, "command channel not available")
	}
	if tc.Commands.Broken() {
		if err := tc.Commands.CheckReachable(ctx); err != nil {
			return nil, loxerr.New(loxerr.KindTransport, loxerr.ErrTransport, "reconnect failed: "+err.Error())
		}
		tc.Commands.ClearBroken()
	}
	return tc.Commands.Send(ctx, path, true)
}

// errCapability builds a CapabilityUnavailable error for a subsystem the
// loaded structure simply doesn't have (e.g. no weatherServer block).
func errCapability(detail string) error {
	return loxerr.New(loxerr.KindCapabilityUnavailable, loxerr.ErrCapabilityUnavailable, detail)
}

// errString renders any error as the stable `error` field text used across
// every tool result; never panics, never returns an empty string for a
// non-nil error.
func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
