// Package mcp implements a client for the MooAgent tool server
// protocol: plain JSON over HTTP POST, one endpoint per operation.
// It is deliberately not JSON-RPC — the server predates that and the
// envelope is simpler.
package mcp

import "encoding/json"

// ParameterSpec describes a single tool parameter.
type ParameterSpec struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// ToolDefinition is a tool advertised by the server.
type ToolDefinition struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	Parameters  map[string]ParameterSpec `json:"parameters,omitempty"`
}

// Resource is a readable resource advertised by the server.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// resourceContent is one entry of a resources/read response.
type resourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
}

// request is the envelope posted to every endpoint. The method field
// duplicates the URL path; the server checks both agree.
type request struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// callParams carries the tool name and arguments for tools/call.
type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// readParams carries the URI for resources/read.
type readParams struct {
	URI string `json:"uri"`
}

// envelope is the union of all success and error response shapes.
// Exactly one of the payload fields is set on success; Error is set
// on application failure.
type envelope struct {
	Tools     []ToolDefinition  `json:"tools,omitempty"`
	Result    json.RawMessage   `json:"result,omitempty"`
	Resources []Resource        `json:"resources,omitempty"`
	Contents  []resourceContent `json:"contents,omitempty"`
	Error     string            `json:"error,omitempty"`
}
