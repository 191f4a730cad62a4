package tools

import (
	"context"

	"github.com/mooagent/mooagent/internal/mcp"
)

// MCPSource adapts an mcp.Client behind a Bridge into a RemoteSource.
// Every listing and invocation goes through the bridge so a stuck
// server cannot block the agent loop.
type MCPSource struct {
	client *mcp.Client
	bridge *mcp.Bridge
}

// NewMCPSource wraps client and bridge. Both must be non-nil.
func NewMCPSource(client *mcp.Client, bridge *mcp.Bridge) *MCPSource {
	return &MCPSource{client: client, bridge: bridge}
}

// Tools fetches the remote catalog and wraps each tool with a handler
// that dispatches through the bridge.
func (s *MCPSource) Tools(ctx context.Context) ([]Tool, error) {
	defs, err := mcp.Call(s.bridge, ctx, "tools/list", func(ctx context.Context) ([]mcp.ToolDefinition, error) {
		return s.client.ListTools(ctx)
	})
	if err != nil {
		return nil, err
	}

	out := make([]Tool, 0, len(defs))
	for _, def := range defs {
		params := make(map[string]Param, len(def.Parameters))
		for pname, p := range def.Parameters {
			params[pname] = Param{
				Type:        p.Type,
				Description: p.Description,
				Required:    p.Required,
			}
		}
		name := def.Name
		out = append(out, Tool{
			Descriptor: Descriptor{
				Name:        name,
				Description: def.Description,
				Parameters:  params,
				Kind:        KindRemote,
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				return mcp.Call(s.bridge, ctx, "tools/call", func(ctx context.Context) (string, error) {
					return s.client.CallTool(ctx, name, args)
				})
			},
		})
	}
	return out, nil
}
