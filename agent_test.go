package hdlforge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdlforge/go-hdlforge/src/engine"
	"github.com/hdlforge/go-hdlforge/src/tools"
)

// scriptedModel replays canned responses in order; the last one repeats.
type scriptedModel struct {
	mu        sync.Mutex
	responses []string
	prompts   []string
}

func (m *scriptedModel) Generate(_ context.Context, prompt string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	idx := len(m.prompts) - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

func (m *scriptedModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *scriptedModel) prompt(i int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prompts[i]
}

func echoTool(name string) tools.Tool {
	return tools.NewFunc(tools.Spec{
		Name:        name,
		Description: "echoes its message back",
		Parameters:  map[string]tools.Param{"message": {Type: "string", Required: true}},
	}, func(_ context.Context, args map[string]any) (any, error) {
		return map[string]any{"success": true, "echo": args["message"]}, nil
	})
}

func newTestAgent(t *testing.T, model *scriptedModel, toolset ...tools.Tool) *Agent {
	t.Helper()
	agent, err := New(Options{
		Model:  model,
		Tools:  toolset,
		Engine: engine.Options{RetryDelay: time.Millisecond},
	})
	require.NoError(t, err)
	return agent
}

func TestProcessReturnsPlainTextWithoutToolCalls(t *testing.T) {
	model := &scriptedModel{responses: []string{"The adder looks correct."}}
	agent := newTestAgent(t, model, echoTool("echo"))

	out, err := agent.Process(context.Background(), "s1", "review the adder")
	require.NoError(t, err)
	assert.Equal(t, "The adder looks correct.", out)
	assert.Equal(t, 1, model.callCount())
}

func TestProcessFeedsToolResultsBack(t *testing.T) {
	model := &scriptedModel{responses: []string{
		`{"tool_calls": [{"tool_name": "echo", "parameters": {"message": "ping"}}]}`,
		"Echo said ping.",
	}}
	agent := newTestAgent(t, model, echoTool("echo"))

	out, err := agent.Process(context.Background(), "s1", "call echo")
	require.NoError(t, err)
	assert.Equal(t, "Echo said ping.", out)
	require.Equal(t, 2, model.callCount())
	assert.Contains(t, model.prompt(1), "tool echo returned")
	assert.Contains(t, model.prompt(1), "ping")
}

func TestProcessReportsToolFailureToModel(t *testing.T) {
	failing := tools.NewFunc(tools.Spec{Name: "flaky"},
		func(context.Context, map[string]any) (any, error) { return nil, errors.New("disk full") })
	model := &scriptedModel{responses: []string{
		`{"tool_calls": [{"tool_name": "flaky", "parameters": {}}]}`,
		"Could not complete: the tool kept failing.",
	}}
	agent := newTestAgent(t, model, failing)

	out, err := agent.Process(context.Background(), "s1", "do it")
	require.NoError(t, err)
	assert.Contains(t, out, "Could not complete")
	assert.Contains(t, model.prompt(1), "tool flaky failed")
	assert.Contains(t, model.prompt(1), "disk full")
}

func TestProcessStopsAtIterationCap(t *testing.T) {
	// A model that never stops calling tools.
	model := &scriptedModel{responses: []string{
		`{"tool_calls": [{"tool_name": "echo", "parameters": {"message": "again"}}]}`,
	}}
	agent, err := New(Options{
		Model:         model,
		Tools:         []tools.Tool{echoTool("echo")},
		MaxIterations: 3,
		Engine:        engine.Options{RetryDelay: time.Millisecond},
	})
	require.NoError(t, err)

	out, err := agent.Process(context.Background(), "s1", "loop forever")
	require.NoError(t, err)
	assert.Equal(t, 3, model.callCount())
	assert.Contains(t, out, "tool_calls")
}

func TestProcessExecutesCallsInParseOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	recorder := func(name string) tools.Tool {
		return tools.NewFunc(tools.Spec{Name: name},
			func(context.Context, map[string]any) (any, error) {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				return map[string]any{"success": true, "from": name}, nil
			})
	}
	model := &scriptedModel{responses: []string{
		`{"tool_calls": [{"tool_name": "alpha", "parameters": {}}, {"tool_name": "beta", "parameters": {}}]}`,
		"both ran",
	}}
	agent := newTestAgent(t, model, recorder("alpha"), recorder("beta"))

	_, err := agent.Process(context.Background(), "s1", "run both")
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta"}, order)
	followUp := model.prompt(1)
	assert.Less(t, strings.Index(followUp, "tool alpha returned"), strings.Index(followUp, "tool beta returned"))
}

type deadModel struct{}

func (deadModel) Generate(context.Context, string) (any, error) {
	return nil, errors.New("connection refused")
}

func TestProcessModelErrorPropagates(t *testing.T) {
	agent, err := New(Options{Model: deadModel{}})
	require.NoError(t, err)

	_, err = agent.Process(context.Background(), "s1", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model call")
}

func TestProcessHonorsContextCancellation(t *testing.T) {
	model := &scriptedModel{responses: []string{"unused"}}
	agent := newTestAgent(t, model)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := agent.Process(ctx, "s1", "hello")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSystemPromptListsTools(t *testing.T) {
	model := &scriptedModel{responses: []string{"done"}}
	agent := newTestAgent(t, model, echoTool("echo"), echoTool("relay"))

	_, err := agent.Process(context.Background(), "s1", "hi")
	require.NoError(t, err)

	prompt := model.prompt(0)
	assert.Contains(t, prompt, "echo")
	assert.Contains(t, prompt, "relay")
	assert.Contains(t, prompt, `"tool_calls"`)
	assert.Contains(t, prompt, "USER: hi")
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "language model")
}
