package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// testServer serves the four protocol endpoints with canned responses.
func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tools/list", func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode tools/list request: %v", err)
		}
		if req.Method != "tools/list" {
			t.Errorf("method = %q", req.Method)
		}
		w.Write([]byte(`{"tools":[
			{"name":"weather","description":"Get weather","parameters":{"city":{"type":"string","required":true}}},
			{"name":"stocks","description":"Get stock price","parameters":{"symbol":{"type":"string","required":true}}}
		]}`))
	})
	mux.HandleFunc("POST /tools/call", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string     `json:"method"`
			Params callParams `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode tools/call request: %v", err)
		}
		switch req.Params.Name {
		case "weather":
			w.Write([]byte(`{"result":{"result":"Sunny, 22C"}}`))
		case "stocks":
			w.Write([]byte(`{"result":{"symbol":"ACME","price":12.5}}`))
		case "broken":
			w.Write([]byte(`{"error":"tool execution failed: no data"}`))
		default:
			w.Write([]byte(`{"error":"unknown tool"}`))
		}
	})
	mux.HandleFunc("POST /resources/list", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resources":[{"uri":"info://server","name":"Server info","mimeType":"text/plain"}]}`))
	})
	mux.HandleFunc("POST /resources/read", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"contents":[{"uri":"info://server","mimeType":"text/plain","text":"test server v1"}]}`))
	})
	return httptest.NewServer(mux)
}

func TestClient_ListTools(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	c := NewClient(srv.URL)
	tools, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("got %d tools", len(tools))
	}
	if tools[0].Name != "weather" {
		t.Errorf("tools[0].Name = %q", tools[0].Name)
	}
	if !tools[0].Parameters["city"].Required {
		t.Error("city parameter should be required")
	}
}

func TestClient_ListToolsCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"tools":[{"name":"only"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	for i := 0; i < 3; i++ {
		if _, err := c.ListTools(context.Background()); err != nil {
			t.Fatalf("ListTools #%d: %v", i, err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times, want 1 (catalog should be cached)", got)
	}
}

func TestClient_ListToolsFailureNotCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"tools":[{"name":"only"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.ListTools(context.Background()); err == nil {
		t.Fatal("first ListTools should fail")
	}
	tools, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("second ListTools: %v", err)
	}
	if len(tools) != 1 {
		t.Errorf("got %d tools", len(tools))
	}
}

func TestClient_CallTool_NestedResult(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	c := NewClient(srv.URL)
	got, err := c.CallTool(context.Background(), "weather", map[string]any{"city": "Oslo"})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if got != "Sunny, 22C" {
		t.Errorf("result = %q", got)
	}
}

func TestClient_CallTool_ObjectResult(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	c := NewClient(srv.URL)
	got, err := c.CallTool(context.Background(), "stocks", map[string]any{"symbol": "ACME"})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !strings.Contains(got, `"symbol": "ACME"`) {
		t.Errorf("result = %q, want pretty-printed object", got)
	}
}

func TestClient_CallTool_RemoteError(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.CallTool(context.Background(), "broken", nil)
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("error is %T, want *RemoteError", err)
	}
	if !strings.Contains(re.Message, "no data") {
		t.Errorf("Message = %q", re.Message)
	}
}

func TestClient_CallTool_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.CallTool(context.Background(), "anything", nil)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error is %T, want *TransportError", err)
	}
	if te.Timeout {
		t.Error("HTTP 500 should not be marked as timeout")
	}
}

func TestClient_CallTool_MissingResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.CallTool(context.Background(), "anything", nil)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error is %T, want *TransportError", err)
	}
}

func TestClient_CallTool_ConnectionRefused(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", WithTimeout(2*time.Second))
	_, err := c.CallTool(context.Background(), "anything", nil)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error is %T, want *TransportError", err)
	}
}

func TestClient_ListResources(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	c := NewClient(srv.URL)
	res, err := c.ListResources(context.Background())
	if err != nil {
		t.Fatalf("ListResources: %v", err)
	}
	if len(res) != 1 || res[0].URI != "info://server" {
		t.Errorf("resources = %+v", res)
	}
}

func TestClient_ReadResource(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	c := NewClient(srv.URL)
	text, err := c.ReadResource(context.Background(), "info://server")
	if err != nil {
		t.Fatalf("ReadResource: %v", err)
	}
	if text != "test server v1" {
		t.Errorf("text = %q", text)
	}
}

func TestClient_ReadResource_ResultShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"bare text"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	text, err := c.ReadResource(context.Background(), "info://server")
	if err != nil {
		t.Fatalf("ReadResource: %v", err)
	}
	if text != "bare text" {
		t.Errorf("text = %q", text)
	}
}

func TestRenderResult(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"scalar string", `"hello"`, "hello"},
		{"number", `42`, "42"},
		{"bool", `true`, "true"},
		{"null", `null`, "null"},
		{"nested result string", `{"result":"inner"}`, "inner"},
		{"result key among others kept", `{"result":"x","extra":1}`, "{\n  \"extra\": 1,\n  \"result\": \"x\"\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderResult(json.RawMessage(tt.raw)); got != tt.want {
				t.Errorf("renderResult(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
