package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mooagent/mooagent/internal/agent"
	"github.com/mooagent/mooagent/internal/auth"
	"github.com/mooagent/mooagent/internal/buildinfo"
	"github.com/mooagent/mooagent/internal/llm"
	"github.com/mooagent/mooagent/internal/users"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "MooAgent",
		"version": buildinfo.Version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": buildinfo.Uptime().Round(time.Second).String(),
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid email address")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusUnprocessableEntity, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	u := &users.User{
		ID:             uuid.NewString(),
		Email:          req.Email,
		FullName:       strings.TrimSpace(req.FullName),
		HashedPassword: hash,
		CreatedAt:      time.Now().UTC(),
		Active:         true,
	}
	if err := s.store.Create(u); err != nil {
		if errors.Is(err, users.ErrExists) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		s.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info("user registered", "email", u.Email)
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":        u.ID,
		"email":     u.Email,
		"full_name": u.FullName,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	u, err := s.store.Get(req.Email)
	if err != nil || !u.Active || !auth.VerifyPassword(req.Password, u.HashedPassword) {
		// Same response for unknown user and bad password.
		writeError(w, http.StatusUnauthorized, "incorrect email or password")
		return
	}

	token, err := s.issuer.Issue(u.Email)
	if err != nil {
		s.logger.Error("issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"full_name":  u.FullName,
		"created_at": u.CreatedAt.Format(time.RFC3339),
	})
}

type chatRequest struct {
	Message        string        `json:"message"`
	Model          string        `json:"model,omitempty"`
	ConversationID string        `json:"conversation_id,omitempty"`
	History        []llm.Message `json:"conversation_history,omitempty"`
}

type chatResponse struct {
	Response       string       `json:"response"`
	ConversationID string       `json:"conversation_id"`
	Model          string       `json:"model"`
	FailureReason  string       `json:"failure_reason,omitempty"`
	Steps          []agent.Step `json:"steps,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusUnprocessableEntity, "message must not be empty")
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	orch := agent.NewOrchestrator(s.llm, s.selector, s.newRegistry(), s.logger,
		agent.WithMaxIterations(s.cfg.Agent.MaxIterations),
		agent.WithDeadline(s.cfg.Agent.Deadline()),
	)
	res := orch.Run(r.Context(), &agent.Request{
		Input:   req.Message,
		Model:   req.Model,
		History: req.History,
	})

	resp := chatResponse{
		ConversationID: req.ConversationID,
		Model:          res.Model,
		Steps:          res.Steps,
	}
	if res.Failed {
		resp.Response = res.Message
		resp.FailureReason = res.Reason
	} else {
		resp.Response = res.Answer
	}
	// Failures are still a valid chat turn; the client reads failure_reason.
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAgentInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":           "MooAgent",
		"version":        buildinfo.Version,
		"default_model":  s.selector.Default(),
		"max_iterations": s.cfg.Agent.MaxIterations,
		"deadline_sec":   int(s.cfg.Agent.Deadline().Seconds()),
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"default": s.selector.Default(),
		"models":  s.selector.Known(),
	})
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	reg := s.newRegistry()
	writeJSON(w, http.StatusOK, map[string]any{
		"tools":  reg.List(r.Context()),
		"remote": reg.Remote(r.Context()),
	})
}
