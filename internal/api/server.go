// Package api exposes the assistant over HTTP: auth, chat, and the
// model/tool catalogs.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mooagent/mooagent/internal/auth"
	"github.com/mooagent/mooagent/internal/buildinfo"
	"github.com/mooagent/mooagent/internal/config"
	"github.com/mooagent/mooagent/internal/llm"
	"github.com/mooagent/mooagent/internal/mcp"
	"github.com/mooagent/mooagent/internal/tools"
	"github.com/mooagent/mooagent/internal/users"
)

// Server is the HTTP API server.
type Server struct {
	cfg      *config.Config
	llm      llm.Client
	selector *llm.Selector
	mcp      *mcp.Client // nil when no tool server configured
	bridge   *mcp.Bridge
	store    users.Store
	issuer   *auth.TokenIssuer
	logger   *slog.Logger

	httpServer *http.Server
}

// NewServer wires up the API. mcpClient may be nil.
func NewServer(
	cfg *config.Config,
	llmClient llm.Client,
	selector *llm.Selector,
	mcpClient *mcp.Client,
	store users.Store,
	issuer *auth.TokenIssuer,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		llm:      llmClient,
		selector: selector,
		mcp:      mcpClient,
		bridge:   mcp.NewBridge(cfg.MCP.Timeout(), logger),
		store:    store,
		issuer:   issuer,
		logger:   logger.With("component", "api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/me", s.requireAuth(s.handleMe))
	mux.HandleFunc("POST /chat", s.requireAuth(s.handleChat))
	mux.HandleFunc("GET /agent/info", s.handleAgentInfo)
	mux.HandleFunc("GET /models", s.handleModels)
	mux.HandleFunc("GET /tools", s.handleTools)

	addr := fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.withLogging(s.withCORS(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start runs the server until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.logger.Info("API server listening", "addr", s.httpServer.Addr, "version", buildinfo.Version)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("API server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the full middleware-wrapped handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// newRegistry builds a tool registry for one request. The registry is
// cheap: the remote catalog cache lives in the shared mcp client.
func (s *Server) newRegistry() *tools.Registry {
	var src tools.RemoteSource
	if s.mcp != nil {
		src = tools.NewMCPSource(s.mcp, s.bridge)
	}
	return tools.NewRegistry(src, s.logger)
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("encode response", "error", err)
	}
}

// writeError writes a JSON error envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
