// Package credentials resolves Miniserver host/user/password/API-key from
// an ordered list of backends, per spec.md §4.1 and Design Notes §9's
// "trait CredentialStore" abstraction. The core depends only on the Store
// interface; no OS-specific keychain type appears here — a concrete
// secret-manager or keychain backend is a collaborator injected from main,
// out of the core's scope per spec.md §1.
package credentials

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Well-known credential keys, matching the env var names in spec.md §6.
const (
	KeyHost   = "LOXONE_HOST"
	KeyUser   = "LOXONE_USER"
	KeyPass   = "LOXONE_PASS"
	KeyAPIKey = "LOXONE_SSE_API_KEY"
)

// Secret is a string-backed type whose String/MarshalJSON/zap field
// formatting all redact the value, so a credential never reaches a log
// line or an error string verbatim.
type Secret string

func (s Secret) String() string       { return "***redacted***" }
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"***redacted***"`), nil
}

// Store is the credential-provider interface the core depends on.
// Implementations are tried in configured order by Provider.
type Store interface {
	Name() string
	Get(key string) (Secret, bool, error)
	Set(key string, value Secret) error
	Delete(key string) error
}

// EnvStore resolves credentials from process environment variables. Per
// spec.md §6, "Environment overrides any secret store", so EnvStore is
// always the first backend a Provider is configured with.
type EnvStore struct{}

func (EnvStore) Name() string { return "environment" }

func (EnvStore) Get(key string) (Secret, bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false, nil
	}
	return Secret(v), true, nil
}

// Set/Delete on the environment backend are not meaningful for a running
// process and are rejected rather than silently mutating os.Environ.
func (EnvStore) Set(key string, value Secret) error {
	return fmt.Errorf("environment credential backend is read-only")
}

func (EnvStore) Delete(key string) error {
	return fmt.Errorf("environment credential backend is read-only")
}

// Provider resolves a key against an ordered list of backends, first
// non-empty wins. Failure to read a backend logs and continues; failure to
// write to the primary (first) backend is fatal to that call, per
// spec.md §4.1.
type Provider struct {
	backends []Store
	logger   *zap.Logger
}

// NewProvider builds a provider trying backends in the given order.
func NewProvider(logger *zap.Logger, backends ...Store) *Provider {
	return &Provider{backends: backends, logger: logger}
}

// Get returns the first non-empty value for key across the configured
// backends, in order.
func (p *Provider) Get(key string) (Secret, bool) {
	for _, b := range p.backends {
		v, ok, err := b.Get(key)
		if err != nil {
			if p.logger != nil {
				p.logger.Warn("credential backend read failed",
					zap.String("backend", b.Name()), zap.String("key", key), zap.Error(err))
			}
			continue
		}
		if ok {
			return v, true
		}
	}
	return "", false
}

// Set writes to the primary (first configured) backend only.
func (p *Provider) Set(key string, value Secret) error {
	if len(p.backends) == 0 {
		return fmt.Errorf("no credential backends configured")
	}
	return p.backends[0].Set(key, value)
}

// Delete removes key from every configured backend, logging but continuing
// past individual backend failures.
func (p *Provider) Delete(key string) error {
	var firstErr error
	for _, b := range p.backends {
		if err := b.Delete(key); err != nil {
			if p.logger != nil {
				p.logger.Warn("credential backend delete failed",
					zap.String("backend", b.Name()), zap.String("key", key), zap.Error(err))
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Validate checks that host, user, and password all resolve to a non-empty
// value across the configured backends.
func (p *Provider) Validate() (missing []string) {
	for _, key := range []string{KeyHost, KeyUser, KeyPass} {
		if _, ok := p.Get(key); !ok {
			missing = append(missing, key)
		}
	}
	return missing
}
