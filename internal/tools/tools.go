// Package tools maintains the registry of everything the agent can
// invoke: local built-ins and tools advertised by a remote tool
// server. The registry presents a single flat namespace to the agent.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Kind distinguishes where a tool executes.
type Kind string

const (
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
)

// Param describes one parameter of a tool for prompt rendering and
// input validation.
type Param struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Descriptor is the agent-facing description of a tool.
type Descriptor struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Parameters  map[string]Param `json:"parameters,omitempty"`
	Kind        Kind             `json:"kind"`
}

// Handler executes a tool. The returned string becomes the agent's
// observation.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool pairs a descriptor with its handler.
type Tool struct {
	Descriptor
	Handler Handler
}

// RemoteStatus reports the registry's view of the remote tool server.
type RemoteStatus struct {
	Configured bool   `json:"configured"`
	Available  bool   `json:"available"`
	Err        string `json:"error,omitempty"`
}

// RemoteSource supplies remote tool descriptors and dispatch. It is
// satisfied by the mcp-backed adapter in remote.go.
type RemoteSource interface {
	Tools(ctx context.Context) ([]Tool, error)
}

// Registry holds the merged tool set. Remote tools are loaded lazily
// on first use; a failed load is retried on the next call.
type Registry struct {
	logger *slog.Logger
	remote RemoteSource

	mu           sync.Mutex
	tools        map[string]Tool // canonical name -> tool
	remoteLoaded bool
	remoteErr    error
}

// NewRegistry creates a registry preloaded with the local built-ins.
// remote may be nil when no tool server is configured.
func NewRegistry(remote RemoteSource, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		logger: logger.With("component", "tools"),
		remote: remote,
		tools:  make(map[string]Tool),
	}
	for _, t := range builtins() {
		if err := r.register(t); err != nil {
			// Builtins are compiled in; a collision here is a programming error.
			panic(err)
		}
	}
	return r
}

// register adds a tool, rejecting duplicate canonical names.
// Caller holds no lock; register takes it.
func (r *Registry) register(t Tool) error {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return fmt.Errorf("tool has empty name")
	}
	t.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	return nil
}

// ensureRemote merges the remote catalog into the registry on first
// use. Collisions with existing names are skipped with a warning so a
// misbehaving server cannot shadow built-ins.
func (r *Registry) ensureRemote(ctx context.Context) {
	r.mu.Lock()
	if r.remote == nil || r.remoteLoaded {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	remoteTools, err := r.remote.Tools(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.remoteErr = err
		r.logger.Warn("remote tools unavailable", "error", err)
		return
	}
	r.remoteLoaded = true
	r.remoteErr = nil
	for _, t := range remoteTools {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		if _, exists := r.tools[name]; exists {
			r.logger.Warn("remote tool name collides with registered tool, skipping", "tool", name)
			continue
		}
		t.Name = name
		r.tools[name] = t
	}
	r.logger.Info("remote tools merged", "count", len(remoteTools))
}

// Remote reports whether a remote source is configured and reachable.
func (r *Registry) Remote(ctx context.Context) RemoteStatus {
	r.ensureRemote(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	st := RemoteStatus{Configured: r.remote != nil, Available: r.remoteLoaded}
	if r.remoteErr != nil {
		st.Err = r.remoteErr.Error()
	}
	return st
}

// List returns all tool descriptors sorted by name.
func (r *Registry) List(ctx context.Context) []Descriptor {
	r.ensureRemote(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// resolve maps a possibly sloppy name from the model to a registered
// tool. Exact match wins; otherwise a case-insensitive match is
// accepted only when unambiguous.
func (r *Registry) resolve(name string) (Tool, error) {
	name = strings.TrimSpace(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tools[name]; ok {
		return t, nil
	}

	lower := strings.ToLower(name)
	var matches []Tool
	for canonical, t := range r.tools {
		if strings.ToLower(canonical) == lower {
			matches = append(matches, t)
		}
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	// Zero matches or an ambiguous case-fold both fail closed.
	return Tool{}, &NotFoundError{Name: name}
}

// Invoke runs the named tool with the given arguments. Local handler
// panics are recovered into errors; remote inputs are validated
// against the declared parameters before dispatch.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (result string, err error) {
	r.ensureRemote(ctx)

	t, err := r.resolve(name)
	if err != nil {
		return "", err
	}
	if args == nil {
		args = map[string]any{}
	}

	if t.Kind == KindRemote {
		if err := validate(t.Descriptor, args); err != nil {
			return "", err
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool handler panicked", "tool", t.Name, "panic", rec)
			result = ""
			err = fmt.Errorf("tool %q failed: %v", t.Name, rec)
		}
	}()

	r.logger.Debug("invoking tool", "tool", t.Name, "kind", t.Kind)
	return t.Handler(ctx, args)
}

// validate checks required parameters and primitive types against the
// descriptor. Unknown extra arguments are rejected.
func validate(d Descriptor, args map[string]any) error {
	for pname, p := range d.Parameters {
		v, present := args[pname]
		if !present {
			if p.Required {
				return &SchemaError{Tool: d.Name, Reason: fmt.Sprintf("missing required parameter %q", pname)}
			}
			continue
		}
		if !typeMatches(p.Type, v) {
			return &SchemaError{
				Tool:   d.Name,
				Reason: fmt.Sprintf("parameter %q: expected %s, got %T", pname, p.Type, v),
			}
		}
	}
	for aname := range args {
		if _, ok := d.Parameters[aname]; !ok {
			return &SchemaError{Tool: d.Name, Reason: fmt.Sprintf("unexpected parameter %q", aname)}
		}
	}
	return nil
}

func typeMatches(typ string, v any) bool {
	switch typ {
	case "string":
		_, ok := v.(string)
		return ok
	case "number", "integer":
		switch v.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "object":
		_, ok := v.(map[string]any)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	default:
		// Unknown declared type: accept anything rather than block the tool.
		return true
	}
}
