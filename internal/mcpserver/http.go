package mcpserver

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/loxone-mcp/bridge/internal/tools"
)

// ssePingInterval matches spec.md §4.11's "≈30 s" keepalive cadence.
const ssePingInterval = 30 * time.Second

// protocolVersion is echoed by initialize, per spec.md §6.
const protocolVersion = "2025-03-26"

// HTTPConfig configures the HTTP+SSE transport, grounded on spec.md §4.11
// mode 2 and the LOXONE_SSE_* environment variables of §6.
type HTTPConfig struct {
	Host        string
	Port        int
	APIKey      string
	RequireAuth bool
	DevMode     bool
}

// sseSession is one open GET /sse connection: a response relay channel and
// a lock that serializes dispatch for that session, per spec.md §4.11's
// ordering guarantee ("responses are emitted in the order of their
// matching requests' arrival").
type sseSession struct {
	mu     sync.Mutex
	events chan []byte
	done   chan struct{}
}

// Server is C11's HTTP+SSE transport.
type Server struct {
	cfg     HTTPConfig
	logger  *zap.Logger
	metrics *metricsSet

	registry map[string]ToolSpec
	names    []string

	mu       sync.Mutex
	sessions map[string]*sseSession

	httpServer *http.Server
}

// NewHTTPServer builds the HTTP+SSE transport over tc's tool roster.
func NewHTTPServer(tc *tools.ToolContext, cfg HTTPConfig, logger *zap.Logger) *Server {
	specs := BuildRegistry(tc)
	reg := make(map[string]ToolSpec, len(specs))
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		reg[s.Name] = s
		names = append(names, s.Name)
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		metrics:  newMetricsSet(),
		registry: reg,
		names:    names,
		sessions: make(map[string]*sseSession),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.handler())
	mux.HandleFunc("POST /messages", s.withAuth(s.handleMessages))
	mux.HandleFunc("GET /sse", s.withAuth(s.handleSSE))
	if cfg.DevMode {
		mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
		logger.Info("swagger UI enabled (dev mode)", zap.String("path", "/swagger/"))
	}

	handler := chain(mux,
		recoveryMiddleware(logger),
		requestIDMiddleware,
		loggingMiddleware(logger),
	)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // /sse holds the connection open indefinitely
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start serves until the listener closes or a fatal error occurs.
func (s *Server) Start() error {
	s.logger.Info("mcp http+sse transport starting", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("mcp http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// withAuth enforces spec.md §4.11's bearer/API-key requirement, using a
// constant-time digest comparison so a mismatched key cannot be timed
// byte-by-byte.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if !s.cfg.RequireAuth {
		return true
	}
	if s.cfg.APIKey == "" {
		return false
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return constantTimeEqual(key, s.cfg.APIKey)
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return constantTimeEqual(strings.TrimPrefix(auth, "Bearer "), s.cfg.APIKey)
	}
	return false
}

// constantTimeEqual compares two keys via their SHA-256 digests, so the
// comparison itself runs in constant time regardless of where (or whether)
// the inputs diverge, per spec.md's "constant-time digest equality".
func constantTimeEqual(candidate, want string) bool {
	a := sha256.Sum256([]byte(candidate))
	b := sha256.Sum256([]byte(want))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// handleMessages implements POST /messages: one JSON-RPC request in, one
// JSON-RPC response out, additionally relayed onto the session's SSE
// stream (if session_id names one) as an event: message frame.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	sess := s.session(sessionID)
	if sess != nil {
		sess.mu.Lock()
		defer sess.mu.Unlock()
	}

	var req jsonRPCRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, sess, errorResponse(nil, -32700, "parse error: "+err.Error()))
		return
	}

	resp := s.dispatch(r.Context(), req)
	s.writeResponse(w, sess, resp)
}

func (s *Server) writeResponse(w http.ResponseWriter, sess *sseSession, resp jsonRPCResponse) {
	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, `{"error":"failed to marshal response"}`, http.StatusInternalServerError)
		return
	}
	if sess != nil {
		select {
		case sess.events <- body:
		case <-sess.done:
		default:
			s.logger.Warn("sse session event buffer full, dropping relay")
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (s *Server) session(id string) *sseSession {
	if id == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// handleSSE implements GET /sse: opens a stream, announces the session's
// message endpoint, then relays dispatch responses and periodic pings.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sessionID := uuid.NewString()
	sess := &sseSession{events: make(chan []byte, 32), done: make(chan struct{})}
	s.mu.Lock()
	s.sessions[sessionID] = sess
	s.mu.Unlock()
	s.metrics.sessionOpened()

	defer func() {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		close(sess.done)
		s.metrics.sessionClosed()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: endpoint\ndata: /messages?session_id=%s\n\n", sessionID)
	flusher.Flush()

	ticker := time.NewTicker(ssePingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		case msg := <-sess.events:
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// dispatch implements the required JSON-RPC methods of spec.md §6:
// initialize, tools/list, tools/call, prompts/list, resources/list.
func (s *Server) dispatch(ctx context.Context, req jsonRPCRequest) jsonRPCResponse {
	switch req.Method {
	case "initialize":
		resp := newResponse(req.ID)
		resp.Result = map[string]any{
			"protocolVersion": protocolVersion,
			"serverInfo":      map[string]any{"name": serverName, "version": ServerVersion},
			"capabilities": map[string]any{
				"tools":     map[string]any{},
				"resources": map[string]any{},
			},
		}
		return resp

	case "tools/list":
		list := make([]map[string]any, 0, len(s.names))
		for _, name := range s.names {
			spec := s.registry[name]
			list = append(list, map[string]any{
				"name":        spec.Name,
				"description": spec.Description,
				"inputSchema": spec.Schema(),
			})
		}
		resp := newResponse(req.ID)
		resp.Result = map[string]any{"tools": list}
		return resp

	case "tools/call":
		return s.dispatchToolCall(ctx, req)

	case "prompts/list":
		resp := newResponse(req.ID)
		resp.Result = map[string]any{"prompts": []any{}}
		return resp

	case "resources/list":
		resp := newResponse(req.ID)
		resp.Result = map[string]any{"resources": []any{}}
		return resp

	default:
		return errorResponse(req.ID, -32601, "method not found: "+req.Method)
	}
}

func (s *Server) dispatchToolCall(ctx context.Context, req jsonRPCRequest) jsonRPCResponse {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, -32602, "invalid params: "+err.Error())
	}

	spec, ok := s.registry[params.Name]
	if !ok {
		return errorResponse(req.ID, -32601, "unknown tool: "+params.Name)
	}

	s.metrics.toolCalled(params.Name)
	start := time.Now()
	result, err := spec.Call(ctx, params.Arguments)
	s.metrics.toolDuration(params.Name, time.Since(start))

	resp := newResponse(req.ID)
	if err != nil {
		resp.Result = map[string]any{
			"content": []map[string]any{{"type": "text", "text": err.Error()}},
			"isError": true,
		}
		return resp
	}

	data, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return errorResponse(req.ID, -32603, "failed to marshal tool result: "+marshalErr.Error())
	}
	resp.Result = map[string]any{
		"content": []map[string]any{{"type": "text", "text": string(data)}},
	}
	return resp
}
