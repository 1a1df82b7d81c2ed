package tools

import (
	"context"
	"fmt"

	utcp "github.com/universal-tool-calling-protocol/go-utcp"
	utcptools "github.com/universal-tool-calling-protocol/go-utcp/src/tools"
)

// utcpTool exposes a remote UTCP tool through the local Tool contract so
// agents can mix registry tools and UTCP providers in one catalog.
type utcpTool struct {
	client utcp.UtcpClientInterface
	tool   utcptools.Tool
}

func (t *utcpTool) Spec() Spec {
	params := make(map[string]Param, len(t.tool.Inputs.Properties))
	required := make(map[string]bool, len(t.tool.Inputs.Required))
	for _, name := range t.tool.Inputs.Required {
		required[name] = true
	}
	for name, raw := range t.tool.Inputs.Properties {
		p := Param{Type: "string", Required: required[name]}
		if prop, ok := raw.(map[string]any); ok {
			if v, ok := prop["type"].(string); ok && v != "" {
				p.Type = v
			}
			if v, ok := prop["description"].(string); ok {
				p.Description = v
			}
		}
		params[name] = p
	}
	return Spec{
		Name:        t.tool.Name,
		Description: t.tool.Description,
		Parameters:  params,
	}
}

func (t *utcpTool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	return t.client.CallTool(ctx, t.tool.Name, args)
}

// RegisterUTCPTools discovers tools on the UTCP client matching query and
// registers each into the catalog. An empty query registers everything the
// client advertises, bounded by limit.
func RegisterUTCPTools(client utcp.UtcpClientInterface, catalog Catalog, query string, limit int) (int, error) {
	if client == nil {
		return 0, fmt.Errorf("utcp client is nil")
	}
	if catalog == nil {
		return 0, fmt.Errorf("catalog is nil")
	}
	if limit <= 0 {
		limit = 50
	}

	discovered, err := client.SearchTools(query, limit)
	if err != nil {
		return 0, fmt.Errorf("search utcp tools: %w", err)
	}

	registered := 0
	for _, tool := range discovered {
		if err := catalog.Register(&utcpTool{client: client, tool: tool}); err != nil {
			continue
		}
		registered++
	}
	return registered, nil
}
