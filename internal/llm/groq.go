package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mooagent/mooagent/internal/httpkit"
)

// DefaultGroqBaseURL is the public Groq OpenAI-compatible endpoint.
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// Codes Groq returns for models that will never come back. These
// trigger the fallback chain rather than a retry.
var permanentErrorCodes = map[string]bool{
	"model_decommissioned": true,
	"model_not_found":      true,
}

// GroqClient speaks the OpenAI-compatible chat completions API hosted
// by Groq.
type GroqClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGroqClient creates a Groq client. An empty baseURL selects the
// public endpoint.
func NewGroqClient(baseURL, apiKey string, logger *slog.Logger) *GroqClient {
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GroqClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(2 * time.Minute),
		),
		logger: logger.With("provider", "groq"),
	}
}

// chatRequest is the OpenAI-compatible request body.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
}

// chatCompletion is the OpenAI-compatible response body.
type chatCompletion struct {
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// apiError is the OpenAI-compatible error envelope.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Chat sends a chat completion request.
func (c *GroqClient) Chat(ctx context.Context, model string, messages []Message) (*ChatResponse, error) {
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("groq request: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 1<<20)

	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(model, resp)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var completion chatCompletion
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, &BackendError{Model: model, Message: "response contained no choices"}
	}

	c.logger.Debug("chat completion",
		"model", completion.Model,
		"input_tokens", completion.Usage.PromptTokens,
		"output_tokens", completion.Usage.CompletionTokens,
	)

	return &ChatResponse{
		Model:        completion.Model,
		CreatedAt:    time.Unix(completion.Created, 0),
		Content:      completion.Choices[0].Message.Content,
		InputTokens:  completion.Usage.PromptTokens,
		OutputTokens: completion.Usage.CompletionTokens,
	}, nil
}

// decodeError maps a non-200 response to a BackendError, classifying
// decommissioned/unknown models as permanent.
func (c *GroqClient) decodeError(model string, resp *http.Response) error {
	raw := httpkit.ReadErrorBody(resp.Body, 1<<20)

	var apiErr apiError
	if err := json.Unmarshal([]byte(raw), &apiErr); err == nil && apiErr.Error.Message != "" {
		return &BackendError{
			Model:     model,
			Code:      apiErr.Error.Code,
			Message:   apiErr.Error.Message,
			Permanent: permanentErrorCodes[apiErr.Error.Code],
		}
	}

	return &BackendError{
		Model:   model,
		Message: fmt.Sprintf("API error %d: %s", resp.StatusCode, raw),
	}
}

// Ping checks whether the API is reachable by listing models.
func (c *GroqClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer httpkit.DrainAndClose(resp.Body, 1<<20)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("groq ping returned %d", resp.StatusCode)
	}
	return nil
}
