// Package agent implements the bounded tool-using reasoning loop.
// Each iteration asks the model for a Thought and either an Action or
// a Final Answer; tool results are fed back as observations until the
// model answers or a bound is hit.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mooagent/mooagent/internal/llm"
	"github.com/mooagent/mooagent/internal/mcp"
	"github.com/mooagent/mooagent/internal/tools"
)

// Loop bounds.
const (
	DefaultMaxIterations = 10
	DefaultDeadline      = 30 * time.Second
)

// Terminal failure reasons.
const (
	FailModelUnavailable = "model-unavailable"
	FailIterationLimit   = "iteration-limit-exceeded"
	FailDeadlineExceeded = "deadline-exceeded"
)

// Observation kinds recorded in the trace for recoverable errors.
const (
	ObsResult         = "result"
	ObsFormatError    = "format-error"
	ObsToolNotFound   = "tool-not-found"
	ObsSchemaError    = "schema-validation-error"
	ObsTransportError = "transport-error"
	ObsRemoteError    = "remote-application-error"
)

// Request is one user turn handed to the loop.
type Request struct {
	Input   string
	Model   string        // resolved model identifier
	History []llm.Message // prior conversation turns, oldest first
}

// Step records one iteration for the trace.
type Step struct {
	Thought         string `json:"thought,omitempty"`
	Action          string `json:"action,omitempty"`
	ActionInput     string `json:"action_input,omitempty"`
	Observation     string `json:"observation,omitempty"`
	ObservationKind string `json:"observation_kind,omitempty"`
}

// Result is the outcome of a loop run. Failed runs still carry a
// user-presentable Message and the trace accumulated so far.
type Result struct {
	Answer     string
	Failed     bool
	Reason     string // one of the Fail* constants when Failed
	Message    string // user-facing text for failures
	Model      string // model that produced the answer (after fallback)
	Steps      []Step
	Iterations int
}

// Orchestrator runs the reasoning loop against a model client and a
// tool registry.
type Orchestrator struct {
	client        llm.Client
	selector      *llm.Selector
	registry      *tools.Registry
	logger        *slog.Logger
	maxIterations int
	deadline      time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxIterations overrides the iteration cap.
func WithMaxIterations(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// WithDeadline overrides the wall-clock bound for a whole run.
func WithDeadline(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.deadline = d
		}
	}
}

// NewOrchestrator wires the loop. client, selector, and registry must
// be non-nil.
func NewOrchestrator(client llm.Client, selector *llm.Selector, registry *tools.Registry, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		client:        client,
		selector:      selector,
		registry:      registry,
		logger:        logger.With("component", "agent"),
		maxIterations: DefaultMaxIterations,
		deadline:      DefaultDeadline,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the loop for one request. It never returns an error:
// every failure mode maps to a Result with Failed set, so callers
// always have a trace and a user-presentable message.
func (o *Orchestrator) Run(ctx context.Context, req *Request) *Result {
	ctx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	model := o.selector.Resolve(req.Model)
	fallbacks := o.selector.FallbackChain(model)

	res := &Result{Model: model}

	messages := make([]llm.Message, 0, len(req.History)+2)
	messages = append(messages, llm.Message{
		Role:    "system",
		Content: systemPrompt(o.registry.List(ctx)),
	})
	messages = append(messages, req.History...)
	messages = append(messages, llm.Message{Role: "user", Content: req.Input})

	logger := o.logger.With("model", model)
	logger.Info("run started", "input_len", len(req.Input))

	for res.Iterations = 1; res.Iterations <= o.maxIterations; res.Iterations++ {
		completion, err := o.think(ctx, &model, &fallbacks, messages, logger)
		if err != nil {
			if ctx.Err() != nil {
				return o.fail(res, FailDeadlineExceeded, "I ran out of time while working on that. Please try again.")
			}
			return o.fail(res, FailModelUnavailable, "No language model is currently available. Please try again later.")
		}
		res.Model = model

		p := parseCompletion(completion)
		step := Step{Thought: p.thought}

		switch p.kind {
		case parseFinal:
			res.Steps = append(res.Steps, step)
			res.Answer = p.answer
			logger.Info("run finished", "iterations", res.Iterations)
			return res

		case parseAction:
			step.Action = p.action
			step.ActionInput = p.input
			obs, kind := o.act(ctx, p.action, p.input, logger)
			if ctx.Err() != nil {
				res.Steps = append(res.Steps, step)
				return o.fail(res, FailDeadlineExceeded, "I ran out of time while working on that. Please try again.")
			}
			step.Observation = obs
			step.ObservationKind = kind
			res.Steps = append(res.Steps, step)

			messages = append(messages,
				llm.Message{Role: "assistant", Content: completion},
				llm.Message{Role: "user", Content: "Observation: " + obs},
			)

		case parseFormatError:
			step.Observation = p.reason
			step.ObservationKind = ObsFormatError
			res.Steps = append(res.Steps, step)
			logger.Debug("format error", "reason", p.reason)

			messages = append(messages,
				llm.Message{Role: "assistant", Content: completion},
				llm.Message{Role: "user", Content: "Observation: your last reply did not follow the required format: " + p.reason + ". Reply with either an Action and Action Input, or a Final Answer."},
			)
		}

		if ctx.Err() != nil {
			return o.fail(res, FailDeadlineExceeded, "I ran out of time while working on that. Please try again.")
		}
	}

	res.Iterations = o.maxIterations
	return o.fail(res, FailIterationLimit, "I could not reach an answer within the allowed number of reasoning steps.")
}

// think asks the current model for a completion, walking the fallback
// chain on permanent backend errors. The same reasoning step is
// retried on each fallback; model and fallbacks are advanced in place.
func (o *Orchestrator) think(ctx context.Context, model *string, fallbacks *[]string, messages []llm.Message, logger *slog.Logger) (string, error) {
	for {
		resp, err := o.client.Chat(ctx, *model, messages)
		if err == nil {
			return resp.Content, nil
		}

		var be *llm.BackendError
		if errors.As(err, &be) && be.Permanent && len(*fallbacks) > 0 {
			next := (*fallbacks)[0]
			*fallbacks = (*fallbacks)[1:]
			logger.Warn("model permanently unavailable, falling back",
				"from", *model,
				"to", next,
				"code", be.Code,
			)
			*model = next
			continue
		}

		logger.Error("model call failed", "model", *model, "error", err)
		return "", err
	}
}

// act invokes one tool and classifies the outcome as an observation.
// All tool failures are recoverable: the text goes back to the model.
func (o *Orchestrator) act(ctx context.Context, action, input string, logger *slog.Logger) (string, string) {
	args, err := parseActionInput(input)
	if err != nil {
		return fmt.Sprintf("could not parse Action Input as JSON: %v. Provide a single-line JSON object.", err), ObsFormatError
	}

	result, err := o.registry.Invoke(ctx, action, args)
	if err == nil {
		logger.Debug("tool succeeded", "tool", action)
		return result, ObsResult
	}
	logger.Debug("tool failed", "tool", action, "error", err)

	var (
		nf *tools.NotFoundError
		se *tools.SchemaError
		te *mcp.TransportError
		re *mcp.RemoteError
	)
	switch {
	case errors.As(err, &nf):
		return fmt.Sprintf("%v. Use one of the tools listed in the system prompt.", err), ObsToolNotFound
	case errors.As(err, &se):
		return err.Error(), ObsSchemaError
	case errors.As(err, &te):
		return fmt.Sprintf("the tool server could not be reached: %v", err), ObsTransportError
	case errors.As(err, &re):
		return fmt.Sprintf("the tool reported an error: %s", re.Message), ObsRemoteError
	default:
		return fmt.Sprintf("tool %q failed: %v", action, err), ObsRemoteError
	}
}

// parseActionInput decodes the Action Input. A bare string that is not
// JSON is wrapped as {"input": ...} so models that skip the braces for
// single-argument tools still work.
func parseActionInput(input string) (map[string]any, error) {
	input = strings.TrimSpace(input)
	if input == "" || input == "null" || input == "{}" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(input), &args); err == nil {
		return args, nil
	}
	if !strings.HasPrefix(input, "{") {
		return map[string]any{"input": strings.Trim(input, `"`)}, nil
	}
	return nil, fmt.Errorf("malformed JSON object")
}

func (o *Orchestrator) fail(res *Result, reason, message string) *Result {
	res.Failed = true
	res.Reason = reason
	res.Message = message
	o.logger.Warn("run failed", "reason", reason, "iterations", res.Iterations)
	return res
}
