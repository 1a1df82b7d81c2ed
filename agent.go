// Package hdlforge is the agent runtime: it wires a language model, a tool
// catalog, and the execution engine into a conversation loop that keeps
// feeding tool results back to the model until the model answers in prose.
package hdlforge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hdlforge/go-hdlforge/src/engine"
	"github.com/hdlforge/go-hdlforge/src/events"
	"github.com/hdlforge/go-hdlforge/src/models"
	"github.com/hdlforge/go-hdlforge/src/normalize"
	"github.com/hdlforge/go-hdlforge/src/toolcall"
	"github.com/hdlforge/go-hdlforge/src/tools"
)

const defaultSystemPrompt = "You are a hardware design assistant. Answer concisely. When a task needs the workspace, call the available tools instead of guessing file contents."

const defaultMaxIterations = 10

// Turn is one entry in an agent conversation.
type Turn struct {
	Role    string // "system", "user", "assistant", "tool"
	Content string
}

// Agent runs the model/tool conversation loop.
type Agent struct {
	id            string
	model         models.Agent
	catalog       tools.Catalog
	engine        *engine.Engine
	parser        *toolcall.Parser
	systemPrompt  string
	maxIterations int
	sink          events.Sink

	mu sync.Mutex
}

// Options configure a new Agent.
type Options struct {
	ID            string
	Model         models.Agent
	Tools         []tools.Tool
	Catalog       tools.Catalog
	Normalizer    *normalize.Normalizer
	SystemPrompt  string
	MaxIterations int
	Engine        engine.Options // MaxAttempts, RetryDelay; Catalog and Sink are filled in
	Sink          events.Sink
}

// New creates an Agent with the provided options.
func New(opts Options) (*Agent, error) {
	if opts.Model == nil {
		return nil, errors.New("agent requires a language model")
	}

	catalog := opts.Catalog
	if catalog == nil {
		catalog = tools.NewStaticCatalog(nil)
	}
	for _, tool := range opts.Tools {
		if tool == nil {
			continue
		}
		if err := catalog.Register(tool); err != nil {
			return nil, err
		}
	}

	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}

	systemPrompt := opts.SystemPrompt
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultSystemPrompt
	}

	engOpts := opts.Engine
	engOpts.Catalog = catalog
	engOpts.Sink = opts.Sink
	if engOpts.Normalizer == nil {
		engOpts.Normalizer = opts.Normalizer
	}
	eng, err := engine.New(engOpts)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSpace(opts.ID)
	if id == "" {
		id = "agent"
	}

	return &Agent{
		id:            id,
		model:         opts.Model,
		catalog:       catalog,
		engine:        eng,
		parser:        toolcall.NewParser(),
		systemPrompt:  systemPrompt,
		maxIterations: maxIterations,
		sink:          opts.Sink,
	}, nil
}

// ID returns the agent's identifier.
func (a *Agent) ID() string { return a.id }

// Catalog exposes the agent's tool catalog, mainly so callers can register
// additional tools after construction.
func (a *Agent) Catalog() tools.Catalog { return a.catalog }

// Process runs one user request to completion. The model is called in a loop:
// each response is scanned for tool calls, the calls are executed in order,
// and their results are appended as tool turns before the next model call.
// The loop ends when a response contains no tool calls, or when the iteration
// cap is hit, in which case the last assistant text is returned as-is.
//
// Process never returns an error for tool failures; those are reported to the
// model, which decides how to proceed. Errors are reserved for a dead model
// or a canceled context.
func (a *Agent) Process(ctx context.Context, sessionID, userInput string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	events.Emit(a.sink, events.Event{
		Kind:      events.AgentStarted,
		SessionID: sessionID,
		AgentID:   a.id,
	})

	turns := []Turn{
		{Role: "system", Content: a.systemPrompt + "\n\n" + a.toolInstructions()},
		{Role: "user", Content: userInput},
	}

	var lastText string
	for iteration := 0; iteration < a.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		raw, err := a.model.Generate(ctx, renderConversation(turns))
		if err != nil {
			events.Emit(a.sink, events.Event{
				Kind:      events.AgentEnded,
				SessionID: sessionID,
				AgentID:   a.id,
				Error:     err.Error(),
			})
			return "", fmt.Errorf("model call: %w", err)
		}
		text := coerceText(raw)
		lastText = text
		turns = append(turns, Turn{Role: "assistant", Content: text})

		events.Emit(a.sink, events.Event{
			Kind:      events.ModelCall,
			SessionID: sessionID,
			AgentID:   a.id,
			Attempt:   iteration + 1,
			Success:   true,
		})

		calls := a.parser.Parse(text)
		if len(calls) == 0 {
			events.Emit(a.sink, events.Event{
				Kind:      events.AgentEnded,
				SessionID: sessionID,
				AgentID:   a.id,
				Success:   true,
			})
			return text, nil
		}

		results := a.engine.ExecuteAll(ctx, calls)
		for i, result := range results {
			turns = append(turns, Turn{Role: "tool", Content: formatToolTurn(calls[i], result)})
		}
	}

	events.Emit(a.sink, events.Event{
		Kind:      events.AgentEnded,
		SessionID: sessionID,
		AgentID:   a.id,
		Success:   true,
		Detail:    map[string]any{"reason": "iteration cap reached"},
	})
	return lastText, nil
}

// toolInstructions renders the catalog into the system prompt: what tools
// exist and the JSON shape the model must answer with to call them.
func (a *Agent) toolInstructions() string {
	specs := a.catalog.Specs()
	if len(specs) == 0 {
		return "No tools are available. Answer from your own knowledge."
	}

	var sb strings.Builder
	sb.WriteString("Available tools:\n")
	for _, spec := range specs {
		sb.WriteString("- ")
		sb.WriteString(spec.Name)
		if spec.Description != "" {
			sb.WriteString(": ")
			sb.WriteString(spec.Description)
		}
		if names := spec.ParameterNames(); len(names) > 0 {
			sb.WriteString(" (parameters: ")
			sb.WriteString(strings.Join(names, ", "))
			sb.WriteString(")")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nTo call tools, respond with JSON only:\n")
	sb.WriteString(`{"tool_calls": [{"tool_name": "<name>", "parameters": {...}}]}`)
	sb.WriteString("\nWhen you are done, respond in plain prose with no JSON.")
	return sb.String()
}

func renderConversation(turns []Turn) string {
	var sb strings.Builder
	for i, turn := range turns {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.ToUpper(turn.Role))
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
	}
	return sb.String()
}

func formatToolTurn(call toolcall.ToolCall, result toolcall.ToolResult) string {
	if result.Success {
		return fmt.Sprintf("tool %s returned: %v", call.Name, result.Result)
	}
	return fmt.Sprintf("tool %s failed: %s", call.Name, result.Error)
}

func coerceText(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
