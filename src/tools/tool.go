// Package tools defines the tool contract agents expose to the model and the
// built-in file/script/scaffold tools the demo agents register. A tool's
// Invoke returns either a plain value or a map carrying at least
// "success": bool; the execution engine interprets the latter.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Param describes one declared parameter of a tool.
type Param struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Spec is a tool's registration entry: name, human-readable description (fed
// into model-facing tool catalogs), and declared parameters.
type Spec struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Parameters  map[string]Param `json:"parameters"`
}

// ParameterNames returns the declared parameter names in sorted order.
func (s Spec) ParameterNames() []string {
	names := make([]string, 0, len(s.Parameters))
	for name := range s.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tool is one invocable operation.
type Tool interface {
	Spec() Spec
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// funcTool adapts a plain function to the Tool interface.
type funcTool struct {
	spec Spec
	fn   func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunc wraps fn as a Tool with the given spec.
func NewFunc(spec Spec, fn func(ctx context.Context, args map[string]any) (any, error)) Tool {
	return &funcTool{spec: spec, fn: fn}
}

func (t *funcTool) Spec() Spec { return t.spec }

func (t *funcTool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	return t.fn(ctx, args)
}

// Catalog maps tool names to registered tools.
type Catalog interface {
	Register(tool Tool) error
	Lookup(name string) (Tool, Spec, bool)
	Specs() []Spec
	Names() []string
}

// StaticCatalog is the default in-memory Catalog. Registration overwrites an
// existing entry with the same name rather than duplicating it.
type StaticCatalog struct {
	mu    sync.RWMutex
	tools map[string]Tool
	specs map[string]Spec
	order []string
}

// NewStaticCatalog constructs a catalog seeded with the provided tools.
// Invalid entries are skipped.
func NewStaticCatalog(seed []Tool) *StaticCatalog {
	catalog := &StaticCatalog{
		tools: make(map[string]Tool),
		specs: make(map[string]Spec),
	}
	for _, tool := range seed {
		_ = catalog.Register(tool)
	}
	return catalog
}

// Register adds a tool under a lower-cased key, overwriting any previous
// registration of the same name.
func (c *StaticCatalog) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	spec := tool.Spec()
	key := strings.ToLower(strings.TrimSpace(spec.Name))
	if key == "" {
		return fmt.Errorf("tool name is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tools[key]; !exists {
		c.order = append(c.order, key)
	}
	c.tools[key] = tool
	c.specs[key] = spec
	return nil
}

// Lookup returns the tool and its specification if present.
func (c *StaticCatalog) Lookup(name string) (Tool, Spec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := strings.ToLower(strings.TrimSpace(name))
	tool, ok := c.tools[key]
	if !ok {
		return nil, Spec{}, false
	}
	return tool, c.specs[key], true
}

// Specs returns a snapshot of the tool specifications in registration order.
func (c *StaticCatalog) Specs() []Spec {
	c.mu.RLock()
	defer c.mu.RUnlock()

	specs := make([]Spec, 0, len(c.order))
	for _, key := range c.order {
		specs = append(specs, c.specs[key])
	}
	return specs
}

// Names returns the registered tool names in registration order.
func (c *StaticCatalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]string(nil), c.order...)
}

var _ Catalog = (*StaticCatalog)(nil)
