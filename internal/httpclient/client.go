// Package httpclient implements C2, the HTTP command channel to a Loxone
// Miniserver: it issues jdev/... GETs, parses LL-wrapped JSON envelopes,
// retries once on 401 through a token re-acquire, and exposes a
// reachability probe. Dispatch shape grounded on internal/netbox/client.go's
// doJSON helper, generalized from a JSON-body REST client to a
// query-string/path GET client matching Loxone's wire format.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/loxone-mcp/bridge/internal/cryptoenc"
	"github.com/loxone-mcp/bridge/internal/loxerr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TokenSource supplies the current token/user for authenticated requests
// and re-acquires a token on demand. Satisfied by *token.Manager; declared
// here (consumer-side) to avoid an import cycle between C2 and C3.
type TokenSource interface {
	CurrentToken() (string, bool)
	User() string
	ReAuthenticate(ctx context.Context) error
}

// Client is C2: the authenticated HTTP command channel.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	encrypter  *cryptoenc.Encrypter // nil if encryption disabled
	limiter    *rate.Limiter
	logger     *zap.Logger

	broken bool
}

// New builds a Client for http://{host}:{port}/.
func New(host string, port uint16, tokens TokenSource, encrypter *cryptoenc.Encrypter, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    fmt.Sprintf("http://%s:%d", host, port),
		tokens:     tokens,
		encrypter:  encrypter,
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		logger:     logger,
	}
}

// llEnvelope is the Miniserver's standard response wrapper.
type llEnvelope struct {
	LL struct {
		Control string          `json:"control"`
		Code    json.RawMessage `json:"code"`
		Value   json.RawMessage `json:"value"`
	} `json:"LL"`
}

func (e *llEnvelope) codeString() string {
	var s string
	if err := json.Unmarshal(e.LL.Code, &s); err == nil {
		return s
	}
	var n int
	if err := json.Unmarshal(e.LL.Code, &n); err == nil {
		return fmt.Sprintf("%d", n)
	}
	return ""
}

// Broken reports whether the last request failed at the transport level;
// callers (the tool dispatcher) drive reconnection.
func (c *Client) Broken() bool { return c.broken }

// ClearBroken resets the broken flag after a successful reconnect.
func (c *Client) ClearBroken() { c.broken = false }

// Send issues one command and returns the decoded "value" field of the LL
// envelope. Per spec.md §4.2: on LL.code=401, re-authenticate once and
// retry; on network error or 5xx, mark the connection broken.
func (c *Client) Send(ctx context.Context, path string, requiresAuth bool) (json.RawMessage, error) {
	value, code, err := c.doOnce(ctx, path, requiresAuth)
	if err != nil {
		return nil, err
	}
	if code == "401" {
		if reauthErr := c.tokens.ReAuthenticate(ctx); reauthErr != nil {
			return nil, loxerr.New(loxerr.KindUnauthorized, loxerr.ErrUnauthorized, reauthErr.Error())
		}
		value, code, err = c.doOnce(ctx, path, requiresAuth)
		if err != nil {
			return nil, err
		}
		if code != "200" {
			return nil, loxerr.New(loxerr.KindUnauthorized, loxerr.ErrUnauthorized, "retry after re-auth still failed")
		}
		return value, nil
	}
	if code != "200" {
		return nil, loxerr.New(loxerr.KindTransport, loxerr.ErrTransport, "LL.code="+code)
	}
	return value, nil
}

func (c *Client) doOnce(ctx context.Context, path string, requiresAuth bool) (json.RawMessage, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	requestPath := path
	if requiresAuth {
		token, ok := c.tokens.CurrentToken()
		if ok {
			requestPath = fmt.Sprintf("%s?autht=%s&user=%s", path, url.QueryEscape(token), url.QueryEscape(c.tokens.User()))
		}
	}

	if c.encrypter != nil {
		if enc, ok := c.encrypter.TryEncrypt(requestPath); ok {
			requestPath = enc
		}
	}

	reqURL := c.baseURL + "/" + requestPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.broken = true
		return nil, "", loxerr.New(loxerr.KindTransport, loxerr.ErrTransport, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.broken = true
		return nil, "", loxerr.New(loxerr.KindTransport, loxerr.ErrTransport, err.Error())
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, "401", nil
	}
	if resp.StatusCode >= 500 {
		c.broken = true
		return nil, "", loxerr.New(loxerr.KindTransport, loxerr.ErrTransport, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, "", loxerr.New(loxerr.KindDecode, loxerr.ErrDecode, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	var env llEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, "", loxerr.New(loxerr.KindDecode, loxerr.ErrDecode, err.Error())
	}
	return env.LL.Value, env.codeString(), nil
}

// CheckReachable performs the mandatory reachability probe
// (GET /jdev/cfg/apiKey) that must succeed before any other request after
// (re)connect.
func (c *Client) CheckReachable(ctx context.Context) error {
	_, _, err := c.doOnce(ctx, "jdev/cfg/apiKey", false)
	return err
}
