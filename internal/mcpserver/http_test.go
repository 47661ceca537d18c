package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/loxone-mcp/bridge/internal/catalog"
	"github.com/loxone-mcp/bridge/internal/ltype"
	"github.com/loxone-mcp/bridge/internal/tools"
)

func testToolContext(t *testing.T) *tools.ToolContext {
	t.Helper()
	cat := &catalog.Catalog{
		Rooms: map[string]ltype.Room{
			"r1": {UUID: "r1", Name: "Wohnzimmer"},
		},
		ByRoom: map[string][]string{},
	}
	return tools.New(nil, nil, nil, nil, zap.NewNop(), cat)
}

func testServer(t *testing.T, requireAuth bool) *Server {
	t.Helper()
	return NewHTTPServer(testToolContext(t), HTTPConfig{
		Host:        "127.0.0.1",
		Port:        0,
		APIKey:      "secret-key",
		RequireAuth: requireAuth,
		DevMode:     false,
	}, zap.NewNop())
}

func postJSON(s *Server, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	return w
}

func TestBuildRegistryCoversEveryToolOnce(t *testing.T) {
	specs := BuildRegistry(testToolContext(t))
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		if seen[s.Name] {
			t.Errorf("duplicate tool name in registry: %s", s.Name)
		}
		seen[s.Name] = true
		if s.Description == "" {
			t.Errorf("tool %s has no description", s.Name)
		}
	}
	if len(specs) != 41 {
		t.Errorf("BuildRegistry returned %d tools, want 41", len(specs))
	}
}

func TestHandleMessagesRequiresAuthWhenConfigured(t *testing.T) {
	s := testServer(t, true)
	w := postJSON(s, "/messages", jsonRPCRequest{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "initialize"})
	if w.Code != 401 {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if got := w.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("WWW-Authenticate = %q, want %q", got, "Bearer")
	}
}

func TestHandleMessagesInitializeWithBearerToken(t *testing.T) {
	s := testServer(t, true)
	data, _ := json.Marshal(jsonRPCRequest{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "initialize"})
	req := httptest.NewRequest("POST", "/messages", bytes.NewReader(data))
	req.Header.Set("Authorization", "Bearer secret-key")
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
	var resp jsonRPCResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("result = %#v, want a map", resp.Result)
	}
	if result["protocolVersion"] != protocolVersion {
		t.Errorf("protocolVersion = %v, want %q", result["protocolVersion"], protocolVersion)
	}
}

func TestHandleMessagesNoAuthRequired(t *testing.T) {
	s := testServer(t, false)
	w := postJSON(s, "/messages", jsonRPCRequest{JSONRPC: "2.0", ID: json.RawMessage(`2`), Method: "tools/list"})
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestDispatchToolsListIncludesEveryRegistryName(t *testing.T) {
	s := testServer(t, false)
	resp := s.dispatch(context.Background(), jsonRPCRequest{Method: "tools/list"})
	result := resp.Result.(map[string]any)
	list := result["tools"].([]map[string]any)
	if len(list) != len(s.names) {
		t.Fatalf("tools/list returned %d entries, want %d", len(list), len(s.names))
	}
}

func TestDispatchToolCallUnknownTool(t *testing.T) {
	s := testServer(t, false)
	params, _ := json.Marshal(map[string]any{"name": "not_a_real_tool", "arguments": map[string]any{}})
	resp := s.dispatch(context.Background(), jsonRPCRequest{Method: "tools/call", Params: params})
	if resp.Error == nil {
		t.Fatal("expected an error for an unknown tool")
	}
}

func TestDispatchToolCallListRooms(t *testing.T) {
	s := testServer(t, false)
	params, _ := json.Marshal(map[string]any{"name": "list_rooms", "arguments": map[string]any{}})
	resp := s.dispatch(context.Background(), jsonRPCRequest{Method: "tools/call", Params: params})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result := resp.Result.(map[string]any)
	if result["isError"] == true {
		t.Fatalf("unexpected tool error: %+v", result)
	}
}
