// Package llm provides LLM client implementations.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Message represents a chat message for the LLM.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the unified response from any LLM provider.
// All fields use proper Go types — wire format conversion happens
// at provider boundaries (groq.go).
type ChatResponse struct {
	Model     string
	CreatedAt time.Time
	Content   string

	// Token usage (provider-neutral)
	InputTokens  int
	OutputTokens int
}

// Client is the interface that all LLM providers must implement.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, model string, messages []Message) (*ChatResponse, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}

// BackendError is a failure reported by a model backend. Permanent
// errors (decommissioned or unknown models) trigger the fallback chain;
// everything else is treated as unrecoverable for the current request.
type BackendError struct {
	Model     string
	Code      string
	Message   string
	Permanent bool
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("model %s: %s (%s)", e.Model, e.Message, e.Code)
	}
	return fmt.Sprintf("model %s: %s", e.Model, e.Message)
}
