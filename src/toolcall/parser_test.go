package toolcall

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWrappedFormat(t *testing.T) {
	input := `{"tool_calls": [{"tool_name": "write_file", "parameters": {"filename": "a.txt", "content": "hi"}, "call_id": "c1"}]}`

	parser := NewParser()
	calls := parser.Parse(input)

	require.Len(t, calls, 1)
	assert.Equal(t, "write_file", calls[0].Name)
	assert.Equal(t, map[string]any{"filename": "a.txt", "content": "hi"}, calls[0].Parameters)
	assert.Equal(t, "c1", calls[0].CallID)
}

func TestParseUnwrappedSingleCall(t *testing.T) {
	input := `{"tool_name": "read_file", "parameters": {"filepath": "x.v"}}`

	calls := NewParser().Parse(input)

	require.Len(t, calls, 1)
	assert.Equal(t, "read_file", calls[0].Name)
	assert.Equal(t, map[string]any{"filepath": "x.v"}, calls[0].Parameters)
	assert.Equal(t, "call_0", calls[0].CallID)
}

func TestParseFencedBlock(t *testing.T) {
	input := "Sure, I'll write the file now.\n```json\n" +
		`{"tool_calls": [{"tool_name": "write_file", "parameters": {"filename": "adder.v"}}]}` +
		"\n```\nDone."

	calls := NewParser().Parse(input)

	require.Len(t, calls, 1)
	assert.Equal(t, "write_file", calls[0].Name)
	assert.Equal(t, "adder.v", calls[0].Parameters["filename"])
}

func TestParseMultipleFencedBlocks(t *testing.T) {
	input := "First:\n```json\n{\"tool_name\": \"read_file\", \"parameters\": {}}\n```\n" +
		"then garbage:\n```json\n{not json}\n```\n" +
		"then:\n```json\n{\"tool_name\": \"write_file\", \"parameters\": {}}\n```"

	calls := NewParser().Parse(input)

	require.Len(t, calls, 2)
	assert.Equal(t, "read_file", calls[0].Name)
	assert.Equal(t, "write_file", calls[1].Name)
	assert.Equal(t, "call_0", calls[0].CallID)
	assert.Equal(t, "call_1", calls[1].CallID)
}

func TestParseLooseText(t *testing.T) {
	input := "I need more information. Let me call tool: read_file and then use tool: list_directory."

	calls := NewParser().Parse(input)

	require.Len(t, calls, 2)
	assert.Equal(t, "read_file", calls[0].Name)
	assert.Equal(t, "list_directory", calls[1].Name)
	assert.Empty(t, calls[0].Parameters)
}

func TestParseNeverPanicsAndIsDeterministic(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"plain prose with no calls at all",
		"{",
		"}{",
		`{"tool_calls": "not a list"}`,
		`{"tool_calls": [42, {"parameters": {}}]}`,
		strings.Repeat("{[", 2000),
		"```json\n\n```",
		`{"tool_name": ""}`,
	}

	parser := NewParser()
	for _, input := range inputs {
		first := parser.Parse(input)
		second := parser.Parse(input)
		assert.Equal(t, first, second, "input %q", input)
	}
}

func TestParseProseYieldsNothing(t *testing.T) {
	calls := NewParser().Parse("The adder module looks correct; no further changes needed.")
	assert.Empty(t, calls)
}

func TestParseOrderingMatchesSource(t *testing.T) {
	input := `{"tool_calls": [
		{"tool_name": "generate_module", "parameters": {"name": "alu"}},
		{"tool_name": "run_script", "parameters": {"command": "make lint"}}
	]}`

	calls := NewParser().Parse(input)

	require.Len(t, calls, 2)
	assert.Equal(t, "generate_module", calls[0].Name)
	assert.Equal(t, "run_script", calls[1].Name)
}

func TestWithParametersLeavesOriginalUntouched(t *testing.T) {
	original := NewToolCall("write_file", map[string]any{"file": "a.v"}, "c7", 0)
	derived := original.WithParameters(map[string]any{"filename": "a.v"})

	assert.Equal(t, map[string]any{"file": "a.v"}, original.Parameters)
	assert.Equal(t, map[string]any{"filename": "a.v"}, derived.Parameters)
	assert.Equal(t, "c7", derived.CallID)
	assert.Equal(t, "write_file", derived.Name)
}

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		`prefix {"a": {"b": 1}} suffix`: `{"a": {"b": 1}}`,
		"no object here":                "",
		"}} {\"k\": 1}":                 `{"k": 1}`,
	}
	for input, want := range cases {
		assert.Equal(t, want, ExtractJSON(input), "input %q", input)
	}
}
