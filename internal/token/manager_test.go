package token

import (
	"context"
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // matches the Miniserver's own handshake choice
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/loxone-mcp/bridge/internal/loxepoch"
)

// newFakeMiniserver builds an httptest.Server standing in for the parts of
// the Miniserver's jdev/sys surface the handshake touches. validUntil is
// expressed in Loxone-epoch seconds from now.
func newFakeMiniserver(t *testing.T, salt, key string, validUntil int64, refreshedValidUntil int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/jdev/sys/getkey2/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"LL":{"control":"%s","code":"200","value":{"key":%q,"salt":%q,"hashAlg":"SHA1"}}}`, r.URL.Path, key, salt)
	})
	mux.HandleFunc("/jdev/sys/getjwt/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"LL":{"control":"%s","code":"200","value":{"token":"tok-abc","validUntil":%d,"tokenRights":4,"key":"aabbcc","unsecurePass":false}}}`, r.URL.Path, validUntil)
	})
	mux.HandleFunc("/jdev/sys/refreshjwt/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"LL":{"control":"%s","code":"200","value":{"token":"tok-refreshed","validUntil":%d}}}`, r.URL.Path, refreshedValidUntil)
	})
	mux.HandleFunc("/jdev/sys/killtoken/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"LL":{"control":"%s","code":"200","value":"OK"}}`, r.URL.Path)
	})
	mux.HandleFunc("/jdev/cfg/apiKey", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"LL":{"control":"%s","code":"200","value":"1234"}}`, r.URL.Path)
	})
	return httptest.NewServer(mux)
}

func managerAgainst(t *testing.T, srv *httptest.Server) *Manager {
	t.Helper()
	m := NewManager("127.0.0.1", 0, "admin", "secret", nil)
	m.httpClient = srv.Client()
	var port int
	fmt.Sscanf(strings.TrimPrefix(srv.URL, "http://127.0.0.1:"), "%d", &port)
	m.port = uint16(port)
	return m
}

func TestAuthenticateSetsTokenAndState(t *testing.T) {
	validUntil := loxepoch.Now() + 3600
	srv := newFakeMiniserver(t, "53616c74", "6b6579", validUntil, 0)
	defer srv.Close()

	m := managerAgainst(t, srv)
	if err := m.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	tok, ok := m.CurrentToken()
	if !ok || tok != "tok-abc" {
		t.Fatalf("CurrentToken = %q, %v; want tok-abc, true", tok, ok)
	}
	if m.State() != StateAuthenticated {
		t.Fatalf("State = %v; want Authenticated", m.State())
	}
	if m.ValidFor() <= 0 {
		t.Fatalf("ValidFor = %d; want positive", m.ValidFor())
	}
}

func TestRefreshIfNeededSkipsWhenFresh(t *testing.T) {
	validUntil := loxepoch.Now() + 3600
	srv := newFakeMiniserver(t, "53616c74", "6b6579", validUntil, validUntil+3600)
	defer srv.Close()

	m := managerAgainst(t, srv)
	if err := m.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	before, _ := m.CurrentToken()

	if err := m.RefreshIfNeeded(context.Background()); err != nil {
		t.Fatalf("RefreshIfNeeded: %v", err)
	}
	after, _ := m.CurrentToken()
	if before != after {
		t.Fatalf("token changed on a fresh refresh check: %q -> %q", before, after)
	}
}

func TestRefreshIfNeededRefreshesNearExpiry(t *testing.T) {
	validUntil := loxepoch.Now() + 60 // within RefreshThresholdSeconds
	refreshedUntil := loxepoch.Now() + 3600
	srv := newFakeMiniserver(t, "53616c74", "6b6579", validUntil, refreshedUntil)
	defer srv.Close()

	m := managerAgainst(t, srv)
	if err := m.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	if err := m.RefreshIfNeeded(context.Background()); err != nil {
		t.Fatalf("RefreshIfNeeded: %v", err)
	}
	tok, _ := m.CurrentToken()
	if tok != "tok-refreshed" {
		t.Fatalf("CurrentToken = %q; want tok-refreshed", tok)
	}
	if m.State() != StateAuthenticated {
		t.Fatalf("State after refresh = %v; want Authenticated", m.State())
	}
}

func TestRefreshFallsBackToFullAuthenticateOnFailure(t *testing.T) {
	validUntil := loxepoch.Now() + 60
	mux := http.NewServeMux()
	mux.HandleFunc("/jdev/sys/getkey2/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"LL":{"code":"200","value":{"key":"6b6579","salt":"53616c74","hashAlg":"SHA1"}}}`)
	})
	getjwtCalls := 0
	mux.HandleFunc("/jdev/sys/getjwt/", func(w http.ResponseWriter, r *http.Request) {
		getjwtCalls++
		fmt.Fprintf(w, `{"LL":{"code":"200","value":{"token":"tok-reacquired","validUntil":%d,"tokenRights":4,"key":"aabbcc"}}}`, loxepoch.Now()+3600)
	})
	mux.HandleFunc("/jdev/sys/refreshjwt/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"LL":{"code":"500","value":null}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	m := managerAgainst(t, srv)
	m.mu.Lock()
	m.token = "tok-stale"
	m.validUntilEpoch = validUntil
	m.state = StateAuthenticated
	m.mu.Unlock()

	if err := m.RefreshIfNeeded(context.Background()); err != nil {
		t.Fatalf("RefreshIfNeeded: %v", err)
	}
	tok, _ := m.CurrentToken()
	if tok != "tok-reacquired" {
		t.Fatalf("CurrentToken = %q; want tok-reacquired (full re-auth fallback)", tok)
	}
	if getjwtCalls != 1 {
		t.Fatalf("getjwt called %d times; want 1", getjwtCalls)
	}
}

func TestKillTreats401AsAlreadyInvalid(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/jdev/sys/killtoken/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	m := managerAgainst(t, srv)
	m.mu.Lock()
	m.token = "tok-abc"
	m.mu.Unlock()

	if err := m.Kill(context.Background()); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if m.State() != StateKilled {
		t.Fatalf("State = %v; want Killed", m.State())
	}
}

func TestKillNoopWithoutToken(t *testing.T) {
	m := NewManager("127.0.0.1", 0, "admin", "secret", nil)
	if err := m.Kill(context.Background()); err != nil {
		t.Fatalf("Kill with no token should be a no-op: %v", err)
	}
}

func TestHashUpperRejectsUnsupportedAlg(t *testing.T) {
	if _, err := hashUpper("MD5", "whatever"); err == nil {
		t.Fatal("expected error for unsupported hashAlg")
	}
}

func TestHashUpperMatchesIndependentSHA1(t *testing.T) {
	got, err := hashUpper("SHA1", "secret:53616c74")
	if err != nil {
		t.Fatalf("hashUpper: %v", err)
	}
	sum := sha1.Sum([]byte("secret:53616c74")) //nolint:gosec
	want := strings.ToUpper(hex.EncodeToString(sum[:]))
	if got != want {
		t.Fatalf("hashUpper = %q; want %q", got, want)
	}
}

func TestHmacHexMatchesIndependentHMACSHA1(t *testing.T) {
	key, _ := hex.DecodeString("6b6579")
	got, err := hmacHex("SHA1", key, "admin:ABCDEF")
	if err != nil {
		t.Fatalf("hmacHex: %v", err)
	}
	mac := hmac.New(sha1.New, key) //nolint:gosec
	mac.Write([]byte("admin:ABCDEF"))
	want := hex.EncodeToString(mac.Sum(nil))
	if got != want {
		t.Fatalf("hmacHex = %q; want %q", got, want)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateUnauthenticated: "unauthenticated",
		StateAuthenticating:  "authenticating",
		StateAuthenticated:   "authenticated",
		StateRefreshing:      "refreshing",
		StateKilled:          "killed",
		State(99):            "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q; want %q", int(state), got, want)
		}
	}
}
