package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mooagent/mooagent/internal/auth"
	"github.com/mooagent/mooagent/internal/config"
	"github.com/mooagent/mooagent/internal/llm"
	"github.com/mooagent/mooagent/internal/users"
)

// cannedLLM always returns the same completion.
type cannedLLM struct {
	content string
}

func (c *cannedLLM) Chat(ctx context.Context, model string, messages []llm.Message) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Model: model, Content: c.content}, nil
}

func (c *cannedLLM) Ping(ctx context.Context) error { return nil }

func testServer(t *testing.T, completion string) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Auth.Secret = "test-secret"

	sel := llm.NewSelector("test-model", []llm.ModelInfo{{Name: "test-model"}}, nil, nil)
	issuer, err := auth.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL())
	if err != nil {
		t.Fatal(err)
	}
	return NewServer(cfg, &cannedLLM{content: completion}, sel, nil, users.NewMemoryStore(), issuer, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func register(t *testing.T, h http.Handler, email, password string) {
	t.Helper()
	rec := doJSON(t, h, "POST", "/auth/register", "", map[string]string{
		"email": email, "password": password, "full_name": "Test User",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body)
	}
}

func login(t *testing.T, h http.Handler, email, password string) string {
	t.Helper()
	rec := doJSON(t, h, "POST", "/auth/login", "", map[string]string{
		"email": email, "password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	json.Unmarshal(rec.Body.Bytes(), &out)
	return out.AccessToken
}

func TestHealth(t *testing.T) {
	s := testServer(t, "")
	rec := doJSON(t, s.Handler(), "GET", "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	if id := rec.Header().Get("X-Request-ID"); id == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestRegisterValidation(t *testing.T) {
	s := testServer(t, "")
	h := s.Handler()

	rec := doJSON(t, h, "POST", "/auth/register", "", map[string]string{
		"email": "not-an-email", "password": "longenough",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad email: %d", rec.Code)
	}

	rec = doJSON(t, h, "POST", "/auth/register", "", map[string]string{
		"email": "a@example.com", "password": "short",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("short password: %d", rec.Code)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	s := testServer(t, "")
	h := s.Handler()
	register(t, h, "a@example.com", "password123")

	rec := doJSON(t, h, "POST", "/auth/register", "", map[string]string{
		"email": "a@example.com", "password": "password123",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register: %d", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s := testServer(t, "")
	h := s.Handler()
	register(t, h, "a@example.com", "password123")

	rec := doJSON(t, h, "POST", "/auth/login", "", map[string]string{
		"email": "a@example.com", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: %d", rec.Code)
	}

	rec = doJSON(t, h, "POST", "/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "whatever",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown user: %d", rec.Code)
	}
}

func TestMe(t *testing.T) {
	s := testServer(t, "")
	h := s.Handler()
	register(t, h, "a@example.com", "password123")
	token := login(t, h, "a@example.com", "password123")

	rec := doJSON(t, h, "GET", "/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: %d %s", rec.Code, rec.Body)
	}
	var out struct {
		Email string `json:"email"`
	}
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Email != "a@example.com" {
		t.Errorf("email = %q", out.Email)
	}
}

func TestMe_Unauthorized(t *testing.T) {
	s := testServer(t, "")
	h := s.Handler()

	if rec := doJSON(t, h, "GET", "/auth/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: %d", rec.Code)
	}
	if rec := doJSON(t, h, "GET", "/auth/me", "bogus", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("bogus token: %d", rec.Code)
	}
}

func TestChat(t *testing.T) {
	s := testServer(t, "Thought: easy\nFinal Answer: hello from the agent")
	h := s.Handler()
	register(t, h, "a@example.com", "password123")
	token := login(t, h, "a@example.com", "password123")

	rec := doJSON(t, h, "POST", "/chat", token, map[string]string{"message": "hi"})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat: %d %s", rec.Code, rec.Body)
	}
	var out chatResponse
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Response != "hello from the agent" {
		t.Errorf("response = %q", out.Response)
	}
	if out.ConversationID == "" {
		t.Error("missing conversation_id")
	}
	if out.FailureReason != "" {
		t.Errorf("failure_reason = %q", out.FailureReason)
	}
}

func TestChat_EmptyMessage(t *testing.T) {
	s := testServer(t, "")
	h := s.Handler()
	register(t, h, "a@example.com", "password123")
	token := login(t, h, "a@example.com", "password123")

	rec := doJSON(t, h, "POST", "/chat", token, map[string]string{"message": "  "})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty message: %d", rec.Code)
	}
}

func TestChat_RequiresAuth(t *testing.T) {
	s := testServer(t, "")
	rec := doJSON(t, s.Handler(), "POST", "/chat", "", map[string]string{"message": "hi"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated chat: %d", rec.Code)
	}
}

func TestChat_ForgedToken(t *testing.T) {
	s := testServer(t, "")
	h := s.Handler()
	register(t, h, "a@example.com", "password123")

	wrong, err := auth.NewTokenIssuer("other-secret", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	tok, _ := wrong.Issue("a@example.com")

	rec := doJSON(t, h, "POST", "/chat", tok, map[string]string{"message": "hi"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("forged token: %d", rec.Code)
	}
}

func TestModels(t *testing.T) {
	s := testServer(t, "")
	rec := doJSON(t, s.Handler(), "GET", "/models", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("models: %d", rec.Code)
	}
	var out struct {
		Default string          `json:"default"`
		Models  []llm.ModelInfo `json:"models"`
	}
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Default != "test-model" || len(out.Models) != 1 {
		t.Errorf("models = %+v", out)
	}
}

func TestTools(t *testing.T) {
	s := testServer(t, "")
	rec := doJSON(t, s.Handler(), "GET", "/tools", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("tools: %d", rec.Code)
	}
	var out struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
		Remote struct {
			Configured bool `json:"configured"`
		} `json:"remote"`
	}
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Remote.Configured {
		t.Error("remote should not be configured in tests")
	}
	found := false
	for _, tool := range out.Tools {
		if tool.Name == "calculator" {
			found = true
		}
	}
	if !found {
		t.Error("calculator missing from tool list")
	}
}

func TestAgentInfo(t *testing.T) {
	s := testServer(t, "")
	rec := doJSON(t, s.Handler(), "GET", "/agent/info", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("agent info: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "default_model") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestCORS(t *testing.T) {
	s := testServer(t, "")
	h := s.Handler()

	req := httptest.NewRequest("OPTIONS", "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight: %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow-origin = %q", got)
	}

	req = httptest.NewRequest("OPTIONS", "/chat", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got header %q", got)
	}
}
