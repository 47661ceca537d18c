// Package token implements C3, the Miniserver token manager: the
// hash-salt-hmac-jwt handshake, proactive refresh, and kill-on-shutdown.
// Grounded on internal/auth/token.go's TokenService shape (issue/validate/
// refresh split into named methods) and internal/auth/service.go's
// state-machine-ish lifecycle and named-duration constants; exact wire
// semantics taken from original_source/loxone_token_client.py.
package token

import (
	"context"
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // required by the Miniserver's own handshake, not used for general hashing
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/loxone-mcp/bridge/internal/cryptoenc"
	"github.com/loxone-mcp/bridge/internal/loxepoch"
	"github.com/loxone-mcp/bridge/internal/loxerr"
	"go.uber.org/zap"
)

// State is a token-manager lifecycle state.
type State int32

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
	StateRefreshing
	StateKilled
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	case StateKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// RefreshThresholdSeconds is the "valid_until - now" threshold below which
// a command triggers a refresh first, per spec.md §3/§4.3.
const RefreshThresholdSeconds = 300

// PermissionApp is the long-lived app permission level requested in getjwt.
const PermissionApp = 4

const killTimeout = 5 * time.Second

// Manager owns the live token and drives the authentication state machine.
type Manager struct {
	host     string
	port     uint16
	user     string
	password string
	clientID string

	httpClient *http.Client
	logger     *zap.Logger

	mu              sync.RWMutex
	state           State
	token           string
	validUntilEpoch int64
	rights          uint32
	sessionKey      []byte
	acquiredAt      int64

	encrypter *cryptoenc.Encrypter
}

// NewManager builds a Manager for host:port/user/password.
func NewManager(host string, port uint16, user, password string, logger *zap.Logger) *Manager {
	return &Manager{
		host:       host,
		port:       port,
		user:       user,
		password:   password,
		clientID:   uuid.NewString(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		state:      StateUnauthenticated,
	}
}

func (m *Manager) baseURL() string {
	return fmt.Sprintf("http://%s:%d", m.host, m.port)
}

// User returns the configured username.
func (m *Manager) User() string { return m.user }

// CurrentToken returns the live token and whether one has been acquired.
func (m *Manager) CurrentToken() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.token != ""
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// ValidFor reports seconds remaining before the token expires, in Loxone
// epoch terms. Negative once expired.
func (m *Manager) ValidFor() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.validUntilEpoch - loxepoch.Now()
}

// Encrypter returns the loaded public-key encrypter, or nil if encryption
// is disabled for this session.
func (m *Manager) Encrypter() *cryptoenc.Encrypter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.encrypter
}

// llValue is a minimal LL-envelope decoder for the bootstrap handshake,
// independent of the authenticated httpclient.Client (which itself depends
// on a live token supplied by this Manager).
type llValue struct {
	LL struct {
		Code  json.RawMessage `json:"code"`
		Value json.RawMessage `json:"value"`
	} `json:"LL"`
}

func (m *Manager) getJSON(ctx context.Context, client *http.Client, path string) (*llValue, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL()+"/"+path, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", loxerr.New(loxerr.KindTransport, loxerr.ErrTransport, err.Error())
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", loxerr.New(loxerr.KindTransport, loxerr.ErrTransport, err.Error())
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, "401", nil
	}
	var env llValue
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, "", loxerr.New(loxerr.KindDecode, loxerr.ErrDecode, err.Error())
	}
	var code string
	if err := json.Unmarshal(env.LL.Code, &code); err != nil {
		var n int
		if json.Unmarshal(env.LL.Code, &n) == nil {
			code = fmt.Sprintf("%d", n)
		}
	}
	return &env, code, nil
}

// CheckReachable performs the mandatory GET /jdev/cfg/apiKey probe.
func (m *Manager) CheckReachable(ctx context.Context) error {
	_, code, err := m.getJSON(ctx, m.httpClient, "jdev/cfg/apiKey")
	if err != nil {
		return err
	}
	if code != "200" {
		return loxerr.New(loxerr.KindTransport, loxerr.ErrTransport, "apiKey probe returned "+code)
	}
	return nil
}

// LoadPublicKey fetches and parses the Miniserver's RSA public key. On
// failure, command encryption is permanently disabled for this session and
// the error is only logged by the caller, per spec.md §4.3 step 2.
func (m *Manager) LoadPublicKey(ctx context.Context) error {
	env, code, err := m.getJSON(ctx, m.httpClient, "jdev/sys/getPublicKey")
	if err != nil {
		return err
	}
	if code != "200" {
		return fmt.Errorf("getPublicKey returned code %s", code)
	}
	var pemCert string
	if err := json.Unmarshal(env.LL.Value, &pemCert); err != nil {
		return fmt.Errorf("decode public key value: %w", err)
	}
	enc, err := cryptoenc.ParsePublicKey(pemCert, m.logger)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.encrypter = enc
	m.mu.Unlock()
	return nil
}

type keyInfo struct {
	Key     string `json:"key"`
	Salt    string `json:"salt"`
	HashAlg string `json:"hashAlg"`
}

type jwtInfo struct {
	Token       string `json:"token"`
	ValidUntil  int64  `json:"validUntil"`
	TokenRights uint32 `json:"tokenRights"`
	Key         string `json:"key"`
	UnsecurePass bool  `json:"unsecurePass"`
}

// Authenticate runs the full hash-salt-hmac-jwt handshake (spec.md §4.3
// steps 1, 3-6; step 2/public-key is driven separately via LoadPublicKey).
func (m *Manager) Authenticate(ctx context.Context) error {
	m.setState(StateAuthenticating)

	env, code, err := m.getJSON(ctx, m.httpClient, "jdev/sys/getkey2/"+url.PathEscape(m.user))
	if err != nil {
		return err
	}
	if code != "200" {
		return loxerr.New(loxerr.KindUnauthorized, loxerr.ErrUnauthorized, "getkey2 returned "+code)
	}
	var ki keyInfo
	if err := json.Unmarshal(env.LL.Value, &ki); err != nil {
		return loxerr.New(loxerr.KindDecode, loxerr.ErrDecode, err.Error())
	}
	if ki.HashAlg == "" {
		ki.HashAlg = "SHA1"
	}

	pwHash, err := hashUpper(ki.HashAlg, m.password+":"+ki.Salt)
	if err != nil {
		return err
	}

	keyBytes, err := hex.DecodeString(ki.Key)
	if err != nil {
		return loxerr.New(loxerr.KindDecode, loxerr.ErrDecode, "key not valid hex: "+err.Error())
	}
	hmacHex, err := hmacHex(ki.HashAlg, keyBytes, m.user+":"+pwHash)
	if err != nil {
		return err
	}

	clientInfo := url.PathEscape("loxone-mcp-bridge")
	jwtPath := fmt.Sprintf("jdev/sys/getjwt/%s/%s/%d/%s/%s",
		hmacHex, url.PathEscape(m.user), PermissionApp, m.clientID, clientInfo)

	env, code, err = m.getJSON(ctx, m.httpClient, jwtPath)
	if err != nil {
		return err
	}
	if code != "200" {
		return loxerr.New(loxerr.KindUnauthorized, loxerr.ErrUnauthorized, "getjwt returned "+code)
	}
	var ji jwtInfo
	if err := json.Unmarshal(env.LL.Value, &ji); err != nil {
		return loxerr.New(loxerr.KindDecode, loxerr.ErrDecode, err.Error())
	}

	m.mu.Lock()
	m.token = ji.Token
	m.validUntilEpoch = ji.ValidUntil
	m.rights = ji.TokenRights
	if sk, err := hex.DecodeString(ji.Key); err == nil {
		m.sessionKey = sk
	}
	m.acquiredAt = loxepoch.Now()
	m.state = StateAuthenticated
	m.mu.Unlock()

	if ji.UnsecurePass && m.logger != nil {
		m.logger.Warn("Miniserver reports a weak password for this user")
	}
	return nil
}

// ReAuthenticate is the entry point the HTTP client (C2) calls on a 401.
func (m *Manager) ReAuthenticate(ctx context.Context) error {
	return m.Authenticate(ctx)
}

// RefreshIfNeeded refreshes the token if it expires within
// RefreshThresholdSeconds, falling back to a full re-authentication if the
// refresh call itself fails or returns a non-200 code, per spec.md §4.3.
func (m *Manager) RefreshIfNeeded(ctx context.Context) error {
	if m.ValidFor() >= RefreshThresholdSeconds {
		return nil
	}

	m.mu.RLock()
	token, user := m.token, m.user
	m.mu.RUnlock()
	if token == "" {
		return m.Authenticate(ctx)
	}

	m.setState(StateRefreshing)
	env, code, err := m.getJSON(ctx, m.httpClient, fmt.Sprintf("jdev/sys/refreshjwt/%s/%s", token, url.PathEscape(user)))
	if err != nil || code != "200" {
		if m.logger != nil {
			m.logger.Warn("token refresh failed, falling back to full re-auth", zap.Error(err), zap.String("code", code))
		}
		return m.Authenticate(ctx)
	}

	var ji jwtInfo
	if err := json.Unmarshal(env.LL.Value, &ji); err != nil {
		return m.Authenticate(ctx)
	}
	m.mu.Lock()
	m.token = ji.Token
	if ji.ValidUntil != 0 {
		m.validUntilEpoch = ji.ValidUntil
	}
	m.state = StateAuthenticated
	m.mu.Unlock()
	return nil
}

// Kill fires a bounded, best-effort GET /jdev/sys/killtoken on shutdown.
// A 401 is treated as "already invalid", per spec.md §4.3.
func (m *Manager) Kill(ctx context.Context) error {
	m.mu.RLock()
	token, user := m.token, m.user
	m.mu.RUnlock()
	if token == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, killTimeout)
	defer cancel()

	client := &http.Client{Timeout: killTimeout}
	_, code, err := m.getJSON(ctx, client, fmt.Sprintf("jdev/sys/killtoken/%s/%s", token, url.PathEscape(user)))
	m.setState(StateKilled)
	if err != nil {
		return err
	}
	if code == "401" {
		return nil
	}
	return nil
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func hashUpper(alg, input string) (string, error) {
	switch strings.ToUpper(alg) {
	case "SHA1":
		sum := sha1.Sum([]byte(input)) //nolint:gosec
		return strings.ToUpper(hex.EncodeToString(sum[:])), nil
	case "SHA256":
		sum := sha256.Sum256([]byte(input))
		return strings.ToUpper(hex.EncodeToString(sum[:])), nil
	default:
		return "", loxerr.New(loxerr.KindProtocolUnsupported, loxerr.ErrProtocolUnsupported, "hashAlg="+alg)
	}
}

func hmacHex(alg string, key []byte, input string) (string, error) {
	switch strings.ToUpper(alg) {
	case "SHA1":
		mac := hmac.New(sha1.New, key) //nolint:gosec
		mac.Write([]byte(input))
		return hex.EncodeToString(mac.Sum(nil)), nil
	case "SHA256":
		mac := hmac.New(sha256.New, key)
		mac.Write([]byte(input))
		return hex.EncodeToString(mac.Sum(nil)), nil
	default:
		return "", loxerr.New(loxerr.KindProtocolUnsupported, loxerr.ErrProtocolUnsupported, "hashAlg="+alg)
	}
}
