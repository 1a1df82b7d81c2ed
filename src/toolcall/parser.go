package toolcall

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Parser extracts tool calls from raw model text. Three strategies are tried
// in a fixed order and the first one that yields at least one call wins:
//
//  1. the whole response is a JSON object,
//  2. one or more fenced ```json blocks embedded in the response,
//  3. loose natural-language cues ("call tool: x", "function: y").
//
// Parse never fails: malformed input yields an empty slice. Identical input
// always yields identical output.
type Parser struct{}

// NewParser returns a ready-to-use parser.
func NewParser() *Parser {
	return &Parser{}
}

var (
	fencedJSONRegex = regexp.MustCompile("(?s)```(?:json|JSON)\\s*(.*?)```")
	looseCallRegex  = regexp.MustCompile(`(?i)(?:call\s+tool|use\s+tool|tool|function)\s*:\s*` + "`?" + `([A-Za-z_][A-Za-z0-9_.-]*)`)
)

// Parse returns the tool calls found in response, in source order.
func (p *Parser) Parse(response string) []ToolCall {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return nil
	}

	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		if calls := callsFromJSON(trimmed, 0); len(calls) > 0 {
			return calls
		}
	}

	if calls := p.parseFencedBlocks(trimmed); len(calls) > 0 {
		return calls
	}

	return p.parseLooseText(trimmed)
}

func (p *Parser) parseFencedBlocks(response string) []ToolCall {
	matches := fencedJSONRegex.FindAllStringSubmatch(response, -1)
	var calls []ToolCall
	for _, m := range matches {
		block := strings.TrimSpace(m[1])
		if block == "" {
			continue
		}
		// Blocks that fail to parse are skipped, not fatal.
		calls = append(calls, callsFromJSON(block, len(calls))...)
	}
	return calls
}

func (p *Parser) parseLooseText(response string) []ToolCall {
	matches := looseCallRegex.FindAllStringSubmatch(response, -1)
	var calls []ToolCall
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		calls = append(calls, NewToolCall(name, nil, "", len(calls)))
	}
	return calls
}

// callsFromJSON extracts calls from one JSON object. Two accepted shapes:
// a {"tool_calls": [...]} wrapper, or a bare single call
// {"tool_name": ..., "parameters": {...}}. Anything else yields nil.
func callsFromJSON(text string, indexOffset int) []ToolCall {
	var payload map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil
	}

	if raw, ok := payload["tool_calls"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return nil
		}
		var calls []ToolCall
		for _, item := range list {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if call, ok := callFromEntry(entry, indexOffset+len(calls)); ok {
				calls = append(calls, call)
			}
		}
		return calls
	}

	if call, ok := callFromEntry(payload, indexOffset); ok {
		return []ToolCall{call}
	}
	return nil
}

func callFromEntry(entry map[string]any, index int) (ToolCall, bool) {
	name, _ := entry["tool_name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return ToolCall{}, false
	}
	params, _ := entry["parameters"].(map[string]any)
	callID, _ := entry["call_id"].(string)
	return NewToolCall(name, params, callID, index), true
}

// ExtractJSON returns the first balanced JSON object embedded in s, or ""
// when none is found. Used by callers that expect a single decision object
// rather than tool calls.
func ExtractJSON(s string) string {
	start := -1
	depth := 0
	for i, ch := range s {
		switch ch {
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start == -1 {
				continue
			}
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
